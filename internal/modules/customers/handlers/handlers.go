// Package handlers provides HTTP handlers for customer accounts and their
// positions and transition history.
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
	"github.com/deltastar/cfs/internal/modules/customers"
	"github.com/deltastar/cfs/internal/modules/ledger"
	"github.com/deltastar/cfs/internal/modules/positions"
	"github.com/deltastar/cfs/internal/modules/snapshots"
)

// Handler handles customer HTTP requests.
type Handler struct {
	service     *customers.Service
	positions   *positions.Repository
	transitions *ledger.TransitionRepository
	snapshots   *snapshots.Repository
	log         zerolog.Logger
}

// NewHandler creates a new customers handler.
func NewHandler(
	service *customers.Service,
	positionRepo *positions.Repository,
	transitionRepo *ledger.TransitionRepository,
	snapshotRepo *snapshots.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:     service,
		positions:   positionRepo,
		transitions: transitionRepo,
		snapshots:   snapshotRepo,
		log:         log.With().Str("handler", "customers").Logger(),
	}
}

// Routes registers the customer routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.HandleCreate)
	r.Get("/", h.HandleList)
	r.Get("/{customerID}", h.HandleGet)
	r.Get("/{customerID}/positions", h.HandleGetPositions)
	r.Get("/{customerID}/transitions", h.HandleGetTransitions)
	r.Get("/{customerID}/snapshots", h.HandleGetSnapshots)
}

type createRequest struct {
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode"`
}

// HandleCreate handles POST / - open a new account.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	customer, err := h.service.Create(domain.Customer{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		Zipcode:      req.Zipcode,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, customer)
}

// HandleList handles GET / - list all customers.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, all)
}

// HandleGet handles GET /{customerID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}

	customer, err := h.service.GetByID(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, customer)
}

// HandleGetPositions handles GET /{customerID}/positions with an optional
// ?status= filter.
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetByID(id); err != nil {
		h.writeError(w, err)
		return
	}

	status := domain.PositionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		http.Error(w, "Invalid position status: "+string(status), http.StatusBadRequest)
		return
	}

	list, err := h.positions.ListByCustomer(id, status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetTransitions handles GET /{customerID}/transitions.
func (h *Handler) HandleGetTransitions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetByID(id); err != nil {
		h.writeError(w, err)
		return
	}

	list, err := h.transitions.ListByCustomer(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetSnapshots handles GET /{customerID}/snapshots - nightly balance
// snapshots in day order.
func (h *Handler) HandleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	id, ok := h.customerID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.GetByID(id); err != nil {
		h.writeError(w, err)
		return
	}

	list, err := h.snapshots.ListByCustomer(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "customerID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid customer id", http.StatusBadRequest)
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
	case errors.Is(err, domain.ErrCustomerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Customer request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
