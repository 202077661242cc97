// Package handlers provides HTTP handlers for order intake.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/deltastar/cfs/internal/domain"
	"github.com/deltastar/cfs/internal/modules/orders"
	"github.com/deltastar/cfs/pkg/money"
)

// Handler handles order HTTP requests.
type Handler struct {
	service *orders.Service
	log     zerolog.Logger
}

// NewHandler creates a new orders handler.
func NewHandler(service *orders.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "orders").Logger(),
	}
}

// Routes registers the order routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/buy", h.HandleBuy)
	r.Post("/sell", h.HandleSell)
	r.Post("/checks/request", h.HandleRequestCheck)
	r.Post("/checks/deposit", h.HandleDepositCheck)
}

type buyRequest struct {
	CustomerID int64        `json:"customer_id"`
	FundID     int64        `json:"fund_id"`
	Amount     money.Amount `json:"amount"`
}

type sellRequest struct {
	CustomerID int64        `json:"customer_id"`
	FundID     int64        `json:"fund_id"`
	Shares     money.Amount `json:"shares"`
}

type checkRequest struct {
	CustomerID int64        `json:"customer_id"`
	Amount     money.Amount `json:"amount"`
}

// HandleBuy handles POST /buy.
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	transition, err := h.service.Buy(req.CustomerID, req.FundID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transition)
}

// HandleSell handles POST /sell.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	transition, err := h.service.Sell(req.CustomerID, req.FundID, req.Shares)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transition)
}

// HandleRequestCheck handles POST /checks/request.
func (h *Handler) HandleRequestCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	transition, err := h.service.RequestCheck(req.CustomerID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transition)
}

// HandleDepositCheck handles POST /checks/deposit.
func (h *Handler) HandleDepositCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	transition, err := h.service.DepositCheck(req.CustomerID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, transition)
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
	case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrFundNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrInsufficientShares):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAmountOutOfBounds), errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrOverflow), errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Order failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
