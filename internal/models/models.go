package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ledger struct {
	ID        string    `db:"id" json:"id"`
	TripID    string    `db:"trip_id" json:"trip_id"`
	Currency  string    `db:"currency" json:"currency"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Member struct {
	ID        string    `db:"id" json:"id"`
	LedgerID  string    `db:"ledger_id" json:"ledger_id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type DivisionStrategy string

const (
	DivideEqual      DivisionStrategy = "equal"
	DividePercentage DivisionStrategy = "percentage"
	DivideExact      DivisionStrategy = "exact"
	DivideShares     DivisionStrategy = "shares"
)

type Expense struct {
	ID         string           `db:"id" json:"id"`
	LedgerID   string           `db:"ledger_id" json:"ledger_id"`
	PayerID    string           `db:"payer_id" json:"payer_id"`
	Title      string           `db:"title" json:"title"`
	Amount     decimal.Decimal  `db:"amount" json:"amount"`
	Division   DivisionStrategy `db:"division" json:"division"`
	CategoryID *string          `db:"category_id" json:"category_id,omitempty"`
	ActivityID *string          `db:"activity_id" json:"activity_id,omitempty"`
	SpentAt    *time.Time       `db:"spent_at" json:"spent_at,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

type Share struct {
	ID        string          `db:"id" json:"id"`
	ExpenseID string          `db:"expense_id" json:"expense_id"`
	MemberID  string          `db:"member_id" json:"member_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}

type Payment struct {
	ID        string          `db:"id" json:"id"`
	LedgerID  string          `db:"ledger_id" json:"ledger_id"`
	PayerID   string          `db:"payer_id" json:"payer_id"`
	PayeeID   string          `db:"payee_id" json:"payee_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Note      string          `db:"note" json:"note"`
	PaidAt    *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

type Category struct {
	ID       string `db:"id" json:"id"`
	LedgerID string `db:"ledger_id" json:"ledger_id"`
	Name     string `db:"name" json:"name"`
}

type Tag struct {
	ID       string `db:"id" json:"id"`
	LedgerID string `db:"ledger_id" json:"ledger_id"`
	Name     string `db:"name" json:"name"`
}

type Comment struct {
	ID        string    `db:"id" json:"id"`
	ExpenseID string    `db:"expense_id" json:"expense_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Reminder struct {
	ID        string    `db:"id" json:"id"`
	LedgerID  string    `db:"ledger_id" json:"ledger_id"`
	MemberID  string    `db:"member_id" json:"member_id"`
	Message   string    `db:"message" json:"message"`
	RemindAt  time.Time `db:"remind_at" json:"remind_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LedgerSnapshot is the full in-memory state of one ledger, the input the
// settlement engine and the reporting endpoints work from.
type LedgerSnapshot struct {
	Ledger   Ledger    `json:"ledger"`
	Members  []Member  `json:"members"`
	Expenses []Expense `json:"expenses"`
	Shares   []Share   `json:"shares"`
	Payments []Payment `json:"payments"`
}

type MutationAction string

const (
	ActionCreate MutationAction = "create"
	ActionUpdate MutationAction = "update"
	ActionDelete MutationAction = "delete"
)

// PendingMutation is an offline-queued intent, replayed in creation order once
// connectivity returns. DeadAt is set once the mutation exhausts its retry
// budget; dead mutations are skipped by later drains.
type PendingMutation struct {
	ID        string         `db:"id" json:"id"`
	Kind      string         `db:"kind" json:"kind"`
	Action    MutationAction `db:"action" json:"action"`
	Payload   []byte         `db:"payload" json:"payload"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	DeadAt    *time.Time     `db:"dead_at" json:"dead_at,omitempty"`
}

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
	// ChangeSyncFailed is emitted locally when a queued mutation exhausts its
	// retry budget; it never crosses the broker.
	ChangeSyncFailed ChangeType = "sync_failed"
)

// ChangeEvent is the normalized notification emitted when a remote-owned
// record changes. Data carries the full record for creates and updates and is
// empty for deletes.
type ChangeEvent struct {
	Type     ChangeType `json:"type"`
	Kind     string     `json:"kind"`
	EntityID string     `json:"entity_id"`
	LedgerID string     `json:"ledger_id"`
	Data     []byte     `json:"data,omitempty"`
}
