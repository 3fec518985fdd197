package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/validator"
)

type ensureLedgerRequest struct {
	Currency string `json:"currency"`
}

// EnsureLedger is the find-or-create entry point: one ledger per trip, no
// matter how many clients race on it.
func (h *Handler) EnsureLedger(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	var req ensureLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateCurrency(req.Currency); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_currency")
		return
	}
	ledger, err := h.service.EnsureLedger(r.Context(), tripID, req.Currency)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ledger)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.Balances(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"balances": balances})
}

func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.service.Settlement(r.Context(), chi.URLParam(r, "ledgerID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}
