// Package service is the orchestration layer for the shared-expense ledger.
// Every mutating operation goes to the remote system when connectivity is
// available and otherwise degrades to an optimistic local write plus a queued
// intent the reconciliation loop replays later.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/db"
	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/store"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyTitle        = errors.New("title must not be empty")
	ErrEmptyName         = errors.New("name must not be empty")
	ErrSamePayerPayee    = errors.New("payer and payee must differ")
	ErrRemoteUnavailable = errors.New("remote system unavailable")
	ErrNotFound          = store.ErrNotFound
)

// Outcome tells the caller how a mutation landed: applied against the remote
// system, or queued for reconciliation. Precondition failures return neither.
type Outcome int

const (
	Applied Outcome = iota
	Queued
)

func (o Outcome) String() string {
	if o == Queued {
		return "queued"
	}
	return "applied"
}

type LedgerStore interface {
	EnsureForTrip(ctx context.Context, tx store.Tx, tripID, currency string) (models.Ledger, error)
	FindByTrip(ctx context.Context, tripID string) (models.Ledger, error)
	GetByID(ctx context.Context, ledgerID string) (models.Ledger, error)
}

type MemberStore interface {
	Create(ctx context.Context, tx store.Execer, member models.Member) error
	Update(ctx context.Context, tx store.Execer, member models.Member) error
	Delete(ctx context.Context, tx store.Execer, memberID string) error
	GetByID(ctx context.Context, memberID string) (models.Member, error)
	ListByLedger(ctx context.Context, ledgerID string) ([]models.Member, error)
}

type ExpenseStore interface {
	Create(ctx context.Context, tx store.Execer, expense models.Expense, shares []models.Share) error
	Update(ctx context.Context, tx store.Execer, expense models.Expense, shares []models.Share) error
	Delete(ctx context.Context, tx store.Execer, expenseID string) error
	GetByID(ctx context.Context, expenseID string) (models.Expense, error)
	ListByLedger(ctx context.Context, ledgerID string) ([]models.Expense, error)
	SharesByExpense(ctx context.Context, expenseID string) ([]models.Share, error)
	SharesByLedger(ctx context.Context, ledgerID string) ([]models.Share, error)
}

type PaymentStore interface {
	Create(ctx context.Context, tx store.Execer, payment models.Payment) error
	Update(ctx context.Context, tx store.Execer, payment models.Payment) error
	Delete(ctx context.Context, tx store.Execer, paymentID string) error
	GetByID(ctx context.Context, paymentID string) (models.Payment, error)
	ListByLedger(ctx context.Context, ledgerID string) ([]models.Payment, error)
}

type LabelStore interface {
	CreateCategory(ctx context.Context, tx store.Execer, category models.Category) error
	DeleteCategory(ctx context.Context, tx store.Execer, categoryID string) error
	ListCategories(ctx context.Context, ledgerID string) ([]models.Category, error)
	CreateTag(ctx context.Context, tx store.Execer, tag models.Tag) error
	DeleteTag(ctx context.Context, tx store.Execer, tagID string) error
	ListTags(ctx context.Context, ledgerID string) ([]models.Tag, error)
	AttachTag(ctx context.Context, tx store.Execer, expenseID, tagID string) error
	DetachTag(ctx context.Context, tx store.Execer, expenseID, tagID string) error
}

type CommentStore interface {
	Create(ctx context.Context, tx store.Execer, comment models.Comment) error
	Delete(ctx context.Context, tx store.Execer, commentID string) error
	ListByExpense(ctx context.Context, expenseID string) ([]models.Comment, error)
}

type ReminderStore interface {
	Create(ctx context.Context, tx store.Execer, reminder models.Reminder) error
	Delete(ctx context.Context, tx store.Execer, reminderID string) error
	ListByLedger(ctx context.Context, ledgerID string) ([]models.Reminder, error)
}

type ActivityStore interface {
	ClearCost(ctx context.Context, tx store.Execer, activityID string) error
}

// LocalStore is the device-side cache and queue.
type LocalStore interface {
	PutEntity(ctx context.Context, id, kind string, payload []byte, updatedAt time.Time) error
	GetEntity(ctx context.Context, id string) (localstore.Entity, error)
	DeleteEntity(ctx context.Context, id string) error
	PutView(ctx context.Context, scopeKey string, view any, updatedAt time.Time) error
	GetView(ctx context.Context, scopeKey string, dest any) (time.Time, error)
	AppendMutation(ctx context.Context, m localstore.Mutation) error
	ListDeadMutations(ctx context.Context) ([]localstore.Mutation, error)
}

// Connectivity is what the service needs from the monitor.
type Connectivity interface {
	Available() bool
}

// Publisher delivers change events to other clients. Publish failures are
// logged, never surfaced: events are best effort.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

type LedgerService struct {
	txRunner   db.TxRunner
	ledgers    LedgerStore
	members    MemberStore
	expenses   ExpenseStore
	payments   PaymentStore
	labels     LabelStore
	comments   CommentStore
	reminders  ReminderStore
	activities ActivityStore
	local      LocalStore
	monitor    Connectivity
	publisher  Publisher
	log        zerolog.Logger
	now        func() time.Time
}

type Deps struct {
	TxRunner   db.TxRunner
	Ledgers    LedgerStore
	Members    MemberStore
	Expenses   ExpenseStore
	Payments   PaymentStore
	Labels     LabelStore
	Comments   CommentStore
	Reminders  ReminderStore
	Activities ActivityStore
	Local      LocalStore
	Monitor    Connectivity
	Publisher  Publisher
	Log        zerolog.Logger
}

func NewLedgerService(deps Deps) *LedgerService {
	return &LedgerService{
		txRunner:   deps.TxRunner,
		ledgers:    deps.Ledgers,
		members:    deps.Members,
		expenses:   deps.Expenses,
		payments:   deps.Payments,
		labels:     deps.Labels,
		comments:   deps.Comments,
		reminders:  deps.Reminders,
		activities: deps.Activities,
		local:      deps.Local,
		monitor:    deps.Monitor,
		publisher:  deps.Publisher,
		log:        deps.Log.With().Str("component", "ledger_service").Logger(),
		now:        time.Now,
	}
}

// online reports whether the remote system should be tried at all.
func (s *LedgerService) online() bool {
	return s.monitor == nil || s.monitor.Available()
}

// remoteRejected distinguishes the remote system refusing a write (surface to
// the caller) from the remote system being unreachable (queue and retry). A
// pq error means the server answered; anything else on a mutating call is
// treated as unreachable.
func remoteRejected(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr)
}

func (s *LedgerService) publish(ctx context.Context, changeType models.ChangeType, kind, entityID, ledgerID string, data any) {
	if s.publisher == nil {
		return
	}
	var payload []byte
	if data != nil {
		payload, _ = json.Marshal(data)
	}
	event := models.ChangeEvent{
		Type:     changeType,
		Kind:     kind,
		EntityID: entityID,
		LedgerID: ledgerID,
		Data:     payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Str("entity_id", entityID).Msg("change event not published")
	}
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive()
}
