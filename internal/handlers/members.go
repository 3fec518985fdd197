package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/validator"
)

type memberRequest struct {
	Name   string  `json:"name"`
	UserID *string `json:"user_id"`
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	member, outcome, err := h.service.AddMember(r.Context(), chi.URLParam(r, "ledgerID"), req.Name, req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"member": member, "outcome": outcome.String()})
}

func (h *Handler) RenameMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	outcome, err := h.service.RenameMember(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "memberID"), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.RemoveMember(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "memberID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func respondOutcome(w http.ResponseWriter, outcome service.Outcome) {
	status := http.StatusOK
	if outcome == service.Queued {
		status = http.StatusAccepted
	}
	respondJSON(w, status, map[string]string{"outcome": outcome.String()})
}
