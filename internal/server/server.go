// Package server provides the HTTP server and routing for the ledger.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/modules/customers"
	customershandlers "github.com/deltastar/cfs/internal/modules/customers/handlers"
	"github.com/deltastar/cfs/internal/modules/execution"
	executionhandlers "github.com/deltastar/cfs/internal/modules/execution/handlers"
	"github.com/deltastar/cfs/internal/modules/funds"
	fundshandlers "github.com/deltastar/cfs/internal/modules/funds/handlers"
	"github.com/deltastar/cfs/internal/modules/ledger"
	ledgerhandlers "github.com/deltastar/cfs/internal/modules/ledger/handlers"
	"github.com/deltastar/cfs/internal/modules/orders"
	ordershandlers "github.com/deltastar/cfs/internal/modules/orders/handlers"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/internal/modules/snapshots"
	"github.com/deltastar/cfs/internal/scheduler"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	LedgerDB  *database.DB
	Scheduler *scheduler.Scheduler

	CustomerService  *customers.Service
	FundService      *funds.Service
	OrderService     *orders.Service
	ExecutionService *execution.Service
	PositionRepo     *positions.Repository
	TransitionRepo   *ledger.TransitionRepository
	SnapshotRepo     *snapshots.Repository
}

// Server is the ledger HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		systemHandlers: NewSystemHandlers(cfg.LedgerDB, cfg.Scheduler, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	ordersHandler := ordershandlers.NewHandler(cfg.OrderService, cfg.Log)
	executionHandler := executionhandlers.NewHandler(cfg.ExecutionService, cfg.Log)
	customersHandler := customershandlers.NewHandler(cfg.CustomerService, cfg.PositionRepo, cfg.TransitionRepo, cfg.SnapshotRepo, cfg.Log)
	fundsHandler := fundshandlers.NewHandler(cfg.FundService, cfg.Log)
	transitionsHandler := ledgerhandlers.NewHandler(cfg.TransitionRepo, cfg.Log)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/orders", ordersHandler.Routes)
		r.Route("/execution", executionHandler.Routes)
		r.Route("/customers", customersHandler.Routes)
		r.Route("/funds", fundsHandler.Routes)
		r.Route("/transitions", transitionsHandler.Routes)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Post("/jobs/{name}/run", s.systemHandlers.HandleTriggerJob)
		})
	})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "cfs",
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// loggingMiddleware logs each request with its duration and status.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("Request handled")
	})
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
