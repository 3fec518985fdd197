package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/money"
	"github.com/jonatato/routeit-sub001/internal/service"
)

type paymentRequest struct {
	PayerID string     `json:"payer_id"`
	PayeeID string     `json:"payee_id"`
	Amount  string     `json:"amount"`
	Note    string     `json:"note"`
	PaidAt  *time.Time `json:"paid_at"`
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := money.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	payment, outcome, err := h.service.RecordPayment(r.Context(), service.PaymentRequest{
		LedgerID: chi.URLParam(r, "ledgerID"),
		PayerID:  req.PayerID,
		PayeeID:  req.PayeeID,
		Amount:   amount,
		Note:     req.Note,
		PaidAt:   req.PaidAt,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, mutationStatus(outcome), map[string]any{"payment": payment, "outcome": outcome.String()})
}

func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.DeletePayment(r.Context(), chi.URLParam(r, "ledgerID"), chi.URLParam(r, "paymentID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOutcome(w, outcome)
}
