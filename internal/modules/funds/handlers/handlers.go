// Package handlers provides HTTP handlers for fund admin and price history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/funds"
)

// Handler handles fund HTTP requests.
type Handler struct {
	service *funds.Service
	log     zerolog.Logger
}

// NewHandler creates a new funds handler.
func NewHandler(service *funds.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "funds").Logger(),
	}
}

// Routes registers the fund routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/search", h.HandleSearch)
	r.Get("/{fundID}", h.HandleGet)
	r.Get("/{fundID}/history", h.HandleGetHistory)
}

type createRequest struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Comment string `json:"comment"`
}

// HandleCreate handles POST / - register a new fund.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	fund, err := h.service.Create(req.Name, req.Symbol, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, fund)
}

// HandleList handles GET / - list all funds.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, all)
}

// HandleSearch handles GET /search?q=keyword.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.Search(r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, matches)
}

// HandleGet handles GET /{fundID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}

	fund, err := h.service.GetByID(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fund)
}

// HandleGetHistory handles GET /{fundID}/history - published prices in date
// order.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fundID(w, r)
	if !ok {
		return
	}

	history, err := h.service.PriceHistory(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

func (h *Handler) fundID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fundID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fund id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrFundNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrFundNameTaken), errors.Is(err, domain.ErrFundSymbolTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Fund request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
