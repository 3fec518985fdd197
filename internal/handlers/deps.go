package handlers

import (
	"context"
	"time"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/service"
	"github.com/jonatato/routeit-sub001/internal/settle"
)

// Service is everything the HTTP layer needs from the ledger service.
type Service interface {
	EnsureLedger(ctx context.Context, tripID, currency string) (models.Ledger, error)
	Snapshot(ctx context.Context, ledgerID string) (models.LedgerSnapshot, error)

	AddMember(ctx context.Context, ledgerID, name string, userID *string) (models.Member, service.Outcome, error)
	RenameMember(ctx context.Context, ledgerID, memberID, name string) (service.Outcome, error)
	RemoveMember(ctx context.Context, ledgerID, memberID string) (service.Outcome, error)

	AddExpense(ctx context.Context, req service.ExpenseRequest) (models.Expense, service.Outcome, error)
	GetExpense(ctx context.Context, ledgerID, expenseID string) (models.Expense, []models.Share, error)
	UpdateExpense(ctx context.Context, expenseID string, req service.ExpenseRequest) (models.Expense, service.Outcome, error)
	DeleteExpense(ctx context.Context, ledgerID, expenseID string) (service.Outcome, error)

	RecordPayment(ctx context.Context, req service.PaymentRequest) (models.Payment, service.Outcome, error)
	DeletePayment(ctx context.Context, ledgerID, paymentID string) (service.Outcome, error)

	AddCategory(ctx context.Context, ledgerID, name string) (models.Category, service.Outcome, error)
	DeleteCategory(ctx context.Context, ledgerID, categoryID string) (service.Outcome, error)
	ListCategories(ctx context.Context, ledgerID string) ([]models.Category, error)
	AddTag(ctx context.Context, ledgerID, name string) (models.Tag, service.Outcome, error)
	DeleteTag(ctx context.Context, ledgerID, tagID string) (service.Outcome, error)
	ListTags(ctx context.Context, ledgerID string) ([]models.Tag, error)
	AttachTag(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error)
	DetachTag(ctx context.Context, ledgerID, expenseID, tagID string) (service.Outcome, error)

	AddComment(ctx context.Context, ledgerID, expenseID, authorID, body string) (models.Comment, service.Outcome, error)
	DeleteComment(ctx context.Context, ledgerID, commentID string) (service.Outcome, error)
	ListComments(ctx context.Context, expenseID string) ([]models.Comment, error)
	AddReminder(ctx context.Context, ledgerID, memberID, message string, remindAt time.Time) (models.Reminder, service.Outcome, error)
	DeleteReminder(ctx context.Context, ledgerID, reminderID string) (service.Outcome, error)
	ListReminders(ctx context.Context, ledgerID string) ([]models.Reminder, error)

	Balances(ctx context.Context, ledgerID string) ([]service.MemberBalance, error)
	Settlement(ctx context.Context, ledgerID string) ([]settle.Transfer, error)

	DeadLetters(ctx context.Context) ([]models.PendingMutation, error)
}
