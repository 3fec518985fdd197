package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/settle"
	"github.com/shopspring/decimal"
)

func TestEnsureLedgerRejectsBadCurrency(t *testing.T) {
	called := false
	handler := newTestHandler(&stubService{
		ensureLedgerFn: func(ctx context.Context, tripID, currency string) (models.Ledger, error) {
			called = true
			return models.Ledger{}, nil
		},
	})

	req := requestWithParams(http.MethodPost, "/trips/t1/ledger", "u1", `{"currency":"EURO"}`, map[string]string{"tripID": "t1"})
	rr := httptest.NewRecorder()
	handler.EnsureLedger(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if called {
		t.Fatal("service called despite invalid currency")
	}
}

func TestEnsureLedgerPassesTripID(t *testing.T) {
	var gotTrip, gotCurrency string
	handler := newTestHandler(&stubService{
		ensureLedgerFn: func(ctx context.Context, tripID, currency string) (models.Ledger, error) {
			gotTrip, gotCurrency = tripID, currency
			return models.Ledger{ID: "l1", TripID: tripID, Currency: "EUR"}, nil
		},
	})

	req := requestWithParams(http.MethodPost, "/trips/t1/ledger", "u1", `{"currency":"eur"}`, map[string]string{"tripID": "t1"})
	rr := httptest.NewRecorder()
	handler.EnsureLedger(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if gotTrip != "t1" || gotCurrency != "eur" {
		t.Fatalf("service got (%q, %q)", gotTrip, gotCurrency)
	}
}

func TestAddExpenseInvalidAmountPayload(t *testing.T) {
	handler := newTestHandler(&stubService{})

	req := requestWithParams(http.MethodPost, "/ledgers/l1/expenses", "u1",
		`{"payer_id":"m1","title":"Taxi","amount":"12.345","division":"equal"}`,
		map[string]string{"ledgerID": "l1"})
	rr := httptest.NewRecorder()
	handler.AddExpense(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAddExpenseQueuedReturns202(t *testing.T) {
	handler := newTestHandler(&stubService{
		addExpenseFn: func(ctx context.Context, req service.ExpenseRequest) (models.Expense, service.Outcome, error) {
			return models.Expense{ID: "e1", LedgerID: req.LedgerID}, service.Queued, nil
		},
	})

	req := requestWithParams(http.MethodPost, "/ledgers/l1/expenses", "u1",
		`{"payer_id":"m1","title":"Taxi","amount":"12.34","division":"equal"}`,
		map[string]string{"ledgerID": "l1"})
	rr := httptest.NewRecorder()
	handler.AddExpense(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["outcome"] != "queued" {
		t.Fatalf("outcome = %v, want queued", body["outcome"])
	}
}

func TestAddExpenseMemberNotFound(t *testing.T) {
	handler := newTestHandler(&stubService{
		addExpenseFn: func(ctx context.Context, req service.ExpenseRequest) (models.Expense, service.Outcome, error) {
			return models.Expense{}, 0, service.ErrMemberNotFound
		},
	})

	req := requestWithParams(http.MethodPost, "/ledgers/l1/expenses", "u1",
		`{"payer_id":"ghost","title":"Taxi","amount":"12.34","division":"equal"}`,
		map[string]string{"ledgerID": "l1"})
	rr := httptest.NewRecorder()
	handler.AddExpense(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestDeleteExpenseNotFound(t *testing.T) {
	handler := newTestHandler(&stubService{
		deleteExpenseFn: func(ctx context.Context, ledgerID, expenseID string) (service.Outcome, error) {
			return 0, service.ErrNotFound
		},
	})

	req := requestWithParams(http.MethodDelete, "/ledgers/l1/expenses/e1", "u1", "",
		map[string]string{"ledgerID": "l1", "expenseID": "e1"})
	rr := httptest.NewRecorder()
	handler.DeleteExpense(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestGetBalances(t *testing.T) {
	handler := newTestHandler(&stubService{
		balancesFn: func(ctx context.Context, ledgerID string) ([]service.MemberBalance, error) {
			return []service.MemberBalance{
				{MemberID: "ana", Name: "Ana", Balance: decimal.RequireFromString("15.00")},
			}, nil
		},
	})

	req := requestWithParams(http.MethodGet, "/ledgers/l1/balances", "u1", "", map[string]string{"ledgerID": "l1"})
	rr := httptest.NewRecorder()
	handler.GetBalances(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body struct {
		Balances []service.MemberBalance `json:"balances"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Balances) != 1 || body.Balances[0].MemberID != "ana" {
		t.Fatalf("unexpected balances: %+v", body.Balances)
	}
}

func TestGetSettlementUnavailableOffline(t *testing.T) {
	handler := newTestHandler(&stubService{
		settlementFn: func(ctx context.Context, ledgerID string) ([]settle.Transfer, error) {
			return nil, service.ErrRemoteUnavailable
		},
	})

	req := requestWithParams(http.MethodGet, "/ledgers/l1/settlement", "u1", "", map[string]string{"ledgerID": "l1"})
	rr := httptest.NewRecorder()
	handler.GetSettlement(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestWSChangesMissingToken(t *testing.T) {
	handler := newTestHandler(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/ws/changes", nil)
	rr := httptest.NewRecorder()
	handler.WSChanges(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestWSChangesInvalidToken(t *testing.T) {
	handler := newTestHandler(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/ws/changes?token=not-a-jwt", nil)
	rr := httptest.NewRecorder()
	handler.WSChanges(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestAttachTagQueuedReturns202(t *testing.T) {
	handler := newTestHandler(&stubService{
		attachTagFn: func(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error) {
			return service.Queued, nil
		},
	})

	req := requestWithParams(http.MethodPost, "/ledgers/l1/expenses/e1/tags/t1", "u1", "",
		map[string]string{"ledgerID": "l1", "expenseID": "e1", "tagID": "t1"})
	rr := httptest.NewRecorder()
	handler.AttachTag(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rr.Code, rr.Body.String())
	}
}

func TestGetExpenseReturnsShares(t *testing.T) {
	handler := newTestHandler(&stubService{
		getExpenseFn: func(ctx context.Context, ledgerID, expenseID string) (models.Expense, []models.Share, error) {
			return models.Expense{ID: expenseID, LedgerID: ledgerID, Title: "Ferry"},
				[]models.Share{{ID: "s1", ExpenseID: expenseID, MemberID: "m1", Amount: decimal.NewFromInt(12)}}, nil
		},
	})

	req := requestWithParams(http.MethodGet, "/ledgers/l1/expenses/e1", "u1", "",
		map[string]string{"ledgerID": "l1", "expenseID": "e1"})
	rr := httptest.NewRecorder()
	handler.GetExpense(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Expense models.Expense `json:"expense"`
		Shares  []models.Share `json:"shares"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Expense.Title != "Ferry" || len(body.Shares) != 1 {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestDeadLettersEndpoint(t *testing.T) {
	handler := newTestHandler(&stubService{
		deadLettersFn: func(ctx context.Context) ([]models.PendingMutation, error) {
			return []models.PendingMutation{{ID: "m9", Kind: "expense", Action: models.ActionCreate}}, nil
		},
	})

	req := requestWithParams(http.MethodGet, "/sync/dead-letters", "u1", "", nil)
	rr := httptest.NewRecorder()
	handler.DeadLetters(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Mutations []models.PendingMutation `json:"mutations"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Mutations) != 1 || body.Mutations[0].ID != "m9" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
