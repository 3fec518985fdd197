package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/middleware"
	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/validator"
)

type portionPayload struct {
	MemberID string `json:"member_id"`
	Value    string `json:"value"`
}

type expenseRequest struct {
	PayerID    string           `json:"payer_id"`
	Title      string           `json:"title"`
	Amount     string           `json:"amount"`
	Division   string           `json:"division"`
	Portions   []portionPayload `json:"portions"`
	CategoryID *string          `json:"category_id"`
	ActivityID *string          `json:"activity_id"`
	SpentAt    *time.Time       `json:"spent_at"`
}

func (h *Handler) expenseRequest(r *http.Request) (service.ExpenseRequest, bool) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.ExpenseRequest{}, false
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		return service.ExpenseRequest{}, false
	}
	portions := make([]service.Portion, 0, len(req.Portions))
	for _, portion := range req.Portions {
		value, err := money.ParseAmount(portion.Value)
		if err != nil {
			return service.ExpenseRequest{}, false
		}
		portions = append(portions, service.Portion{MemberID: portion.MemberID, Value: value})
	}
	return service.ExpenseRequest{
		LedgerID:   chi.URLParam(r, "ledgerID"),
		PayerID:    req.PayerID,
		Title:      req.Title,
		Amount:     amount,
		Division:   models.DivisionStrategy(req.Division),
		Portions:   portions,
		CategoryID: req.CategoryID,
		ActivityID: req.ActivityID,
		SpentAt:    req.SpentAt,
	}, true
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.expenseRequest(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	expense, outcome, err := h.service.AddExpense(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"expense": expense, "outcome": outcome.String()})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := h.expenseRequest(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	expense, outcome, err := h.service.UpdateExpense(r.Context(), chi.URLParam(r, "expenseID"), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"expense": expense, "outcome": outcome.String()})
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeleteExpense(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "expenseID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateBody(req.Body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	comment, outcome, err := h.service.AddComment(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "expenseID"), userID, req.Body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"comment": comment, "outcome": outcome.String()})
}

func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.AttachTag(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "expenseID"), chi.URLParam(r, "tagID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DetachTag(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "expenseID"), chi.URLParam(r, "tagID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	expense, shares, err := h.service.GetExpense(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "expenseID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"expense": expense, "shares": shares})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeleteComment(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "commentID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
