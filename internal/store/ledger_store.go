package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/jonatato/routeit-sub001/internal/models"
)

var ErrNotFound = errors.New("store: not found")

type LedgerStore struct {
	db DB
}

func NewLedgerStore(db DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// EnsureForTrip finds or creates the single ledger for a trip. The unique
// constraint on trip_id plus ON CONFLICT DO NOTHING makes this idempotent
// under concurrent callers: exactly one row ever exists per trip.
func (s *LedgerStore) EnsureForTrip(ctx context.Context, tx Tx, tripID, currency string) (models.Ledger, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledgers (id, trip_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (trip_id) DO NOTHING
	`, uuid.NewString(), tripID, currency)
	if err != nil {
		return models.Ledger{}, err
	}
	var ledger models.Ledger
	err = tx.GetContext(ctx, &ledger, `
		SELECT id, trip_id, currency, created_at
		FROM ledgers
		WHERE trip_id = $1
	`, tripID)
	if err != nil {
		return models.Ledger{}, err
	}
	return ledger, nil
}

func (s *LedgerStore) FindByTrip(ctx context.Context, tripID string) (models.Ledger, error) {
	var ledger models.Ledger
	err := s.db.GetContext(ctx, &ledger, `
		SELECT id, trip_id, currency, created_at
		FROM ledgers
		WHERE trip_id = $1
	`, tripID)
	if err == sql.ErrNoRows {
		return models.Ledger{}, ErrNotFound
	}
	if err != nil {
		return models.Ledger{}, err
	}
	return ledger, nil
}

func (s *LedgerStore) GetByID(ctx context.Context, ledgerID string) (models.Ledger, error) {
	var ledger models.Ledger
	err := s.db.GetContext(ctx, &ledger, `
		SELECT id, trip_id, currency, created_at
		FROM ledgers
		WHERE id = $1
	`, ledgerID)
	if err == sql.ErrNoRows {
		return models.Ledger{}, ErrNotFound
	}
	if err != nil {
		return models.Ledger{}, err
	}
	return ledger, nil
}

// VisibleUserIDs returns the account-linked users who can see a ledger, used
// to route change events to user-scoped subscriptions.
func (s *LedgerStore) VisibleUserIDs(ctx context.Context, ledgerID string) ([]string, error) {
	var userIDs []string
	err := s.db.SelectContext(ctx, &userIDs, `
		SELECT DISTINCT user_id
		FROM members
		WHERE ledger_id = $1 AND user_id IS NOT NULL
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}
