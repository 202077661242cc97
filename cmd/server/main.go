// Command server runs the settlement ledger: order intake, the daily execution
// batch and the query API, backed by a single SQLite ledger database.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/config"
	"github.com/deltastar/cfs/internal/database"
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/execution"
	"github.com/deltastar/cfs/internal/modules/funds"
	"github.com/deltastar/cfs/internal/modules/ledger"
	"github.com/deltastar/cfs/internal/modules/orders"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/internal/modules/snapshots"
	"github.com/deltastar/cfs/internal/scheduler"
	"github.com/deltastar/cfs/internal/server"
	"github.com/deltastar/cfs/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet; write directly to stderr.
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Str("data_dir", cfg.DataDir).Int("port", cfg.Port).Msg("Starting ledger")

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	if err := ledgerDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger database")
	}

	db := ledgerDB.Conn()
	customerRepo := customers.NewRepository(db, log)
	fundRepo := funds.NewRepository(db, log)
	positionRepo := positions.NewRepository(db, log)
	transitionRepo := ledger.NewTransitionRepository(db, log)
	snapshotRepo := snapshots.NewRepository(db, log)

	bounds := orders.Bounds{Min: cfg.OrderMinAmount, Max: cfg.OrderMaxAmount}

	customerService := customers.NewService(customerRepo, log)
	fundService := funds.NewService(fundRepo, log)
	orderService := orders.NewService(db, customerRepo, fundRepo, positionRepo, transitionRepo, bounds, log)
	executionService := execution.NewService(db, customerRepo, fundRepo, positionRepo, transitionRepo, bounds, log)
	snapshotService := snapshots.NewService(snapshotRepo, customerRepo, positionRepo, fundRepo, log)

	sched := scheduler.New(log)
	// Maintenance at 03:00, snapshots at 23:30 so the day's batch is included.
	if err := sched.AddJob("0 3 * * *", scheduler.NewMaintenanceJob(ledgerDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule maintenance job")
	}
	if err := sched.AddJob("30 23 * * *", scheduler.NewSnapshotJob(snapshotService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:              log,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		LedgerDB:         ledgerDB,
		Scheduler:        sched,
		CustomerService:  customerService,
		FundService:      fundService,
		OrderService:     orderService,
		ExecutionService: executionService,
		PositionRepo:     positionRepo,
		TransitionRepo:   transitionRepo,
		SnapshotRepo:     snapshotRepo,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}

	log.Info().Msg("Ledger stopped")
}
