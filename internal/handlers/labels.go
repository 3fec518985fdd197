package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/validator"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	category, outcome, err := h.service.AddCategory(r.Context(), chi.URLParam(r, "ledgerID"), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"category": category, "outcome": outcome.String()})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "categoryID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	tag, outcome, err := h.service.AddTag(r.Context(), chi.URLParam(r, "ledgerID"), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"tag": tag, "outcome": outcome.String()})
}

func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeleteTag(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "tagID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

type reminderRequest struct {
	MemberID string    `json:"member_id"`
	Message  string    `json:"message"`
	RemindAt time.Time `json:"remind_at"`
}

func (h *Handler) AddReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateBody(req.Message); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_message")
		return
	}
	reminder, outcome, err := h.service.AddReminder(r.Context(), chi.URLParam(r, "ledgerID"), req.MemberID, req.Message, req.RemindAt)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"reminder": reminder, "outcome": outcome.String()})
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.service.ListReminders(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminders": reminders})
}

func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeleteReminder(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "reminderID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}
