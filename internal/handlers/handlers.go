// Package handlers is the HTTP surface over the ledger service: ledger
// provisioning, entity CRUD, derived balance and settlement views, and the
// websocket change feed.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/jonatato/routeit-sub001/internal/config"
	"github.com/jonatato/routeit-sub001/internal/middleware"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/websocket"
)

type Handler struct {
	cfg     config.Config
	service Service
	members middleware.MemberStore
	hub     *websocket.Hub
	metrics http.Handler
}

func New(cfg config.Config, svc Service, members middleware.MemberStore, hub *websocket.Hub, metrics http.Handler) *Handler {
	return &Handler{
		cfg:     cfg,
		service: svc,
		members: members,
		hub:     hub,
		metrics: metrics,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// mutationStatus picks the success status for a write: 201 when the remote
// system took it, 202 when it was queued for reconciliation.
func mutationStatus(outcome service.Outcome) int {
	if outcome == service.Queued {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

// respondServiceError maps service errors onto HTTP statuses. Precondition
// failures are 400s, missing records 404, an unreachable remote with no usable
// cache 503, and a remote rejection surfaces as 409.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrRemoteUnavailable):
		respondError(w, http.StatusServiceUnavailable, "remote_unavailable")
	case errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSamePayerPayee),
		errors.Is(err, service.ErrInvalidCurrency),
		errors.Is(err, service.ErrInvalidDivision),
		errors.Is(err, service.ErrInvalidPortions),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrNoMembers):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			respondError(w, http.StatusConflict, "rejected_by_remote")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}
