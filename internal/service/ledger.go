package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
)

var ErrInvalidCurrency = errors.New("invalid currency code")

// EnsureLedger returns the one ledger for a trip, creating it on first use.
// Calling it repeatedly, including concurrently from several clients, yields
// the same ledger. Offline, a previously cached ledger is returned; a trip
// that never had its ledger fetched cannot be lazily created without the
// remote system.
func (s *LedgerService) EnsureLedger(ctx context.Context, tripID, currency string) (models.Ledger, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return models.Ledger{}, ErrInvalidCurrency
	}
	if tripID == "" {
		return models.Ledger{}, ErrNotFound
	}

	if !s.online() {
		var ledger models.Ledger
		if s.local != nil {
			if _, err := s.local.GetView(ctx, "trip:"+tripID+":ledger", &ledger); err == nil {
				return ledger, nil
			}
		}
		return models.Ledger{}, ErrRemoteUnavailable
	}

	var ledger models.Ledger
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		found, err := s.ledgers.EnsureForTrip(ctx, tx, tripID, currency)
		if err != nil {
			return err
		}
		ledger = found
		return nil
	})
	if err != nil {
		return models.Ledger{}, err
	}
	if s.local != nil {
		if err := s.local.PutView(ctx, "trip:"+tripID+":ledger", ledger, s.now()); err != nil {
			s.log.Warn().Err(err).Str("trip_id", tripID).Msg("ledger cache write failed")
		}
	}
	return ledger, nil
}

// Snapshot returns the full state of one ledger. Online it fetches fresh and
// refreshes the cached view; offline it serves the cached view, stale or not.
func (s *LedgerService) Snapshot(ctx context.Context, ledgerID string) (models.LedgerSnapshot, error) {
	if !s.online() {
		return s.cachedSnapshot(ctx, ledgerID)
	}

	ledger, err := s.ledgers.GetByID(ctx, ledgerID)
	if err != nil {
		return models.LedgerSnapshot{}, err
	}
	members, err := s.members.ListByLedger(ctx, ledgerID)
	if err != nil {
		return models.LedgerSnapshot{}, err
	}
	expenses, err := s.expenses.ListByLedger(ctx, ledgerID)
	if err != nil {
		return models.LedgerSnapshot{}, err
	}
	shares, err := s.expenses.SharesByLedger(ctx, ledgerID)
	if err != nil {
		return models.LedgerSnapshot{}, err
	}
	payments, err := s.payments.ListByLedger(ctx, ledgerID)
	if err != nil {
		return models.LedgerSnapshot{}, err
	}

	snapshot := models.LedgerSnapshot{
		Ledger:   ledger,
		Members:  members,
		Expenses: expenses,
		Shares:   shares,
		Payments: payments,
	}
	if s.local != nil {
		if err := s.local.PutView(ctx, snapshotKey(ledgerID), snapshot, s.now()); err != nil {
			s.log.Warn().Err(err).Str("ledger_id", ledgerID).Msg("snapshot cache write failed")
		}
	}
	return snapshot, nil
}

func (s *LedgerService) cachedSnapshot(ctx context.Context, ledgerID string) (models.LedgerSnapshot, error) {
	if s.local == nil {
		return models.LedgerSnapshot{}, ErrRemoteUnavailable
	}
	var snapshot models.LedgerSnapshot
	if _, err := s.local.GetView(ctx, snapshotKey(ledgerID), &snapshot); err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return models.LedgerSnapshot{}, ErrRemoteUnavailable
		}
		return models.LedgerSnapshot{}, err
	}
	return snapshot, nil
}
