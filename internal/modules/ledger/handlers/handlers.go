// Package handlers provides HTTP handlers for the transition history.
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
	"github.com/deltastar/cfs/internal/modules/ledger"
)

// Handler handles transition history HTTP requests.
type Handler struct {
	transitions *ledger.TransitionRepository
	log         zerolog.Logger
}

// NewHandler creates a new transitions handler.
func NewHandler(transitionRepo *ledger.TransitionRepository, log zerolog.Logger) *Handler {
	return &Handler{
		transitions: transitionRepo,
		log:         log.With().Str("handler", "transitions").Logger(),
	}
}

// Routes registers the transition routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Get("/{ref}", h.HandleGet)
}

// HandleList handles GET /?limit=N - newest transitions across all customers.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > 10000 {
			http.Error(w, "Invalid limit. Must be 1-10000", http.StatusBadRequest)
			return
		}
		limit = l
	}

	list, err := h.transitions.ListAll(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transitions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /{ref} - look up one transition by its UUID reference.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	transition, err := h.transitions.GetByRef(chi.URLParam(r, "ref"))
	if err != nil {
		if errors.Is(err, domain.ErrTransitionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get transition")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, transition)
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
