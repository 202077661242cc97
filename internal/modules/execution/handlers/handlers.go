// Package handlers provides HTTP handlers for the daily execution batch.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/execution"
	"github.com/deltastar/cfs/pkg/money"
)

// Handler handles execution batch HTTP requests.
type Handler struct {
	service *execution.Service
	log     zerolog.Logger
}

// NewHandler creates a new execution handler.
func NewHandler(service *execution.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "execution").Logger(),
	}
}

// Routes registers the execution routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/day", h.HandleExecuteDay)
}

type priceEntry struct {
	FundID int64        `json:"fund_id"`
	Price  money.Amount `json:"price"`
}

type executeDayRequest struct {
	Date   string       `json:"date"`
	Prices []priceEntry `json:"prices"`
}

// HandleExecuteDay handles POST /day: publish prices and settle everything
// eligible.
func (h *Handler) HandleExecuteDay(w http.ResponseWriter, r *http.Request) {
	var req executeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	date, err := domain.ParseDay(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries := make([]domain.PriceEntry, len(req.Prices))
	for i, p := range req.Prices {
		entries[i] = domain.PriceEntry{FundID: p.FundID, Price: p.Price}
	}

	results, err := h.service.ExecuteDay(entries, date)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("date", date.String()).Msg("Execution batch failed")
		http.Error(w, "Execution batch failed", http.StatusInternalServerError)
		return
	}

	settled := 0
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		} else {
			settled += res.Settled
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"date":    date.String(),
			"results": results,
			"settled": settled,
			"failed":  failed,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
