package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jonatato/routeit-sub001/internal/config"
	"github.com/jonatato/routeit-sub001/internal/middleware"
	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/settle"
)

// stubService implements Service with optional function fields; unset methods
// return zero values.
type stubService struct {
	ensureLedgerFn  func(ctx context.Context, tripID, currency string) (models.Ledger, error)
	snapshotFn      func(ctx context.Context, ledgerID string) (models.LedgerSnapshot, error)
	addMemberFn     func(ctx context.Context, ledgerID, name string, userID *string) (models.Member, service.Outcome, error)
	addExpenseFn    func(ctx context.Context, req service.ExpenseRequest) (models.Expense, service.Outcome, error)
	deleteExpenseFn func(ctx context.Context, ledgerID, expenseID string) (service.Outcome, error)
	getExpenseFn    func(ctx context.Context, ledgerID, expenseID string) (models.Expense, []models.Share, error)
	attachTagFn     func(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error)
	deadLettersFn   func(ctx context.Context) ([]models.PendingMutation, error)
	balancesFn      func(ctx context.Context, ledgerID string) ([]service.MemberBalance, error)
	settlementFn    func(ctx context.Context, ledgerID string) ([]settle.Transfer, error)
}

func (s *stubService) EnsureLedger(ctx context.Context, tripID, currency string) (models.Ledger, error) {
	if s.ensureLedgerFn == nil {
		return models.Ledger{}, nil
	}
	return s.ensureLedgerFn(ctx, tripID, currency)
}

func (s *stubService) Snapshot(ctx context.Context, ledgerID string) (models.LedgerSnapshot, error) {
	if s.snapshotFn == nil {
		return models.LedgerSnapshot{}, nil
	}
	return s.snapshotFn(ctx, ledgerID)
}

func (s *stubService) AddMember(ctx context.Context, ledgerID, name string, userID *string) (models.Member, service.Outcome, error) {
	if s.addMemberFn == nil {
		return models.Member{}, service.Applied, nil
	}
	return s.addMemberFn(ctx, ledgerID, name, userID)
}

func (s *stubService) RenameMember(ctx context.Context, ledgerID, memberID, name string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) RemoveMember(ctx context.Context, ledgerID, memberID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) AddExpense(ctx context.Context, req service.ExpenseRequest) (models.Expense, service.Outcome, error) {
	if s.addExpenseFn == nil {
		return models.Expense{}, service.Applied, nil
	}
	return s.addExpenseFn(ctx, req)
}

func (s *stubService) UpdateExpense(ctx context.Context, expenseID string, req service.ExpenseRequest) (models.Expense, service.Outcome, error) {
	return models.Expense{}, service.Applied, nil
}

func (s *stubService) DeleteExpense(ctx context.Context, ledgerID, expenseID string) (service.Outcome, error) {
	if s.deleteExpenseFn == nil {
		return service.Applied, nil
	}
	return s.deleteExpenseFn(ctx, ledgerID, expenseID)
}

func (s *stubService) RecordPayment(ctx context.Context, req service.PaymentRequest) (models.Payment, service.Outcome, error) {
	return models.Payment{}, service.Applied, nil
}

func (s *stubService) DeletePayment(ctx context.Context, ledgerID, paymentID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) AddCategory(ctx context.Context, ledgerID, name string) (models.Category, service.Outcome, error) {
	return models.Category{}, service.Applied, nil
}

func (s *stubService) DeleteCategory(ctx context.Context, ledgerID, categoryID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) ListCategories(ctx context.Context, ledgerID string) ([]models.Category, error) {
	return nil, nil
}

func (s *stubService) AddTag(ctx context.Context, ledgerID, name string) (models.Tag, service.Outcome, error) {
	return models.Tag{}, service.Applied, nil
}

func (s *stubService) DeleteTag(ctx context.Context, ledgerID, tagID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) ListTags(ctx context.Context, ledgerID string) ([]models.Tag, error) {
	return nil, nil
}

func (s *stubService) AttachTag(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error) {
	if s.attachTagFn == nil {
		return service.Applied, nil
	}
	return s.attachTagFn(ctx, ledgerID, expenseID, tagID)
}

func (s *stubService) DetachTag(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) GetExpense(ctx context.Context, ledgerID, expenseID string) (models.Expense, []models.Share, error) {
	if s.getExpenseFn == nil {
		return models.Expense{}, nil, nil
	}
	return s.getExpenseFn(ctx, ledgerID, expenseID)
}

func (s *stubService) AddComment(ctx context.Context, ledgerID, expenseID, authorID, body string) (models.Comment, service.Outcome, error) {
	return models.Comment{}, service.Applied, nil
}

func (s *stubService) DeleteComment(ctx context.Context, ledgerID, commentID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) ListComments(ctx context.Context, expenseID string) ([]models.Comment, error) {
	return nil, nil
}

func (s *stubService) AddReminder(ctx context.Context, ledgerID, memberID, message string, remindAt time.Time) (models.Reminder, service.Outcome, error) {
	return models.Reminder{}, service.Applied, nil
}

func (s *stubService) DeleteReminder(ctx context.Context, ledgerID, reminderID string) (service.Outcome, error) {
	return service.Applied, nil
}

func (s *stubService) ListReminders(ctx context.Context, ledgerID string) ([]models.Reminder, error) {
	return nil, nil
}

func (s *stubService) DeadLetters(ctx context.Context) ([]models.PendingMutation, error) {
	if s.deadLettersFn == nil {
		return nil, nil
	}
	return s.deadLettersFn(ctx)
}

func (s *stubService) Balances(ctx context.Context, ledgerID string) ([]service.MemberBalance, error) {
	if s.balancesFn == nil {
		return nil, nil
	}
	return s.balancesFn(ctx, ledgerID)
}

func (s *stubService) Settlement(ctx context.Context, ledgerID string) ([]settle.Transfer, error) {
	if s.settlementFn == nil {
		return nil, nil
	}
	return s.settlementFn(ctx, ledgerID)
}

type stubMemberStore struct {
	isMemberFn func(ctx context.Context, ledgerID, userID string) (bool, error)
}

func (s stubMemberStore) IsMember(ctx context.Context, ledgerID, userID string) (bool, error) {
	if s.isMemberFn == nil {
		return true, nil
	}
	return s.isMemberFn(ctx, ledgerID, userID)
}

func newTestHandler(svc Service) *Handler {
	return New(config.Config{JWTSecret: "test-secret", AllowedOrigins: "*"}, svc, stubMemberStore{}, nil, nil)
}

// requestWithParams builds a request carrying an authenticated user and chi
// URL parameters, the shape a handler sees after routing and middleware.
func requestWithParams(method, target, userID, payload string, params map[string]string) *http.Request {
	var req *http.Request
	if payload != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(payload))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.ContextWithUserID(req.Context(), userID)
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}
