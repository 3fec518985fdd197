package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
)

type ExpenseRequest struct {
	LedgerID   string
	PayerID    string
	Title      string
	Amount     decimal.Decimal
	Division   models.DivisionStrategy
	Portions   []Portion
	CategoryID *string
	ActivityID *string
	SpentAt    *time.Time
}

// AddExpense records a shared expense and divides it into per-member shares
// according to the request's division strategy. Preconditions (positive
// amount, known payer and share members, at least one member for equal
// division) are checked before anything is written.
func (s *LedgerService) AddExpense(ctx context.Context, req ExpenseRequest) (models.Expense, Outcome, error) {
	expense, shares, err := s.buildExpense(ctx, req)
	if err != nil {
		return models.Expense{}, 0, err
	}

	if s.online() {
		err := s.remoteCreateExpense(ctx, expense, shares)
		if err == nil {
			s.cacheExpense(ctx, expense, shares)
			return expense, Applied, nil
		}
		if remoteRejected(err) {
			return models.Expense{}, 0, err
		}
		s.log.Info().Err(err).Str("expense_id", expense.ID).Msg("remote unreachable, queueing expense create")
	}

	if err := s.queueMutation(ctx, KindExpense, models.ActionCreate, expensePayload{Expense: expense, Shares: shares}); err != nil {
		return models.Expense{}, 0, err
	}
	s.mutateSnapshot(ctx, req.LedgerID, func(snapshot *models.LedgerSnapshot) {
		snapshot.Expenses = append(snapshot.Expenses, expense)
		snapshot.Shares = append(snapshot.Shares, shares...)
	})
	return expense, Queued, nil
}

// GetExpense returns one expense with its shares. Online reads refresh the
// cached entity; offline reads serve the cached entity first and fall back to
// the cached ledger snapshot.
func (s *LedgerService) GetExpense(ctx context.Context, ledgerID, expenseID string) (models.Expense, []models.Share, error) {
	if s.online() {
		expense, err := s.expenses.GetByID(ctx, expenseID)
		if err != nil {
			return models.Expense{}, nil, err
		}
		shares, err := s.expenses.SharesByExpense(ctx, expenseID)
		if err != nil {
			return models.Expense{}, nil, err
		}
		s.cacheExpense(ctx, expense, shares)
		return expense, shares, nil
	}

	if s.local != nil {
		if entity, err := s.local.GetEntity(ctx, expenseID); err == nil {
			var payload expensePayload
			if err := json.Unmarshal(entity.Payload, &payload); err == nil {
				return payload.Expense, payload.Shares, nil
			}
		}
	}
	snapshot, err := s.cachedSnapshot(ctx, ledgerID)
	if err != nil {
		return models.Expense{}, nil, err
	}
	for _, expense := range snapshot.Expenses {
		if expense.ID != expenseID {
			continue
		}
		var shares []models.Share
		for _, share := range snapshot.Shares {
			if share.ExpenseID == expenseID {
				shares = append(shares, share)
			}
		}
		return expense, shares, nil
	}
	return models.Expense{}, nil, ErrNotFound
}

// UpdateExpense rewrites an expense and replaces its shares. The expense id
// must already exist; the division is recomputed from the request.
func (s *LedgerService) UpdateExpense(ctx context.Context, expenseID string, req ExpenseRequest) (models.Expense, Outcome, error) {
	expense, shares, err := s.buildExpense(ctx, req)
	if err != nil {
		return models.Expense{}, 0, err
	}
	expense.ID = expenseID
	for i := range shares {
		shares[i].ExpenseID = expenseID
	}

	if s.online() {
		err := s.remoteUpdateExpense(ctx, expense, shares)
		if err == nil {
			s.cacheExpense(ctx, expense, shares)
			return expense, Applied, nil
		}
		if remoteRejected(err) {
			return models.Expense{}, 0, err
		}
	}

	if err := s.queueMutation(ctx, KindExpense, models.ActionUpdate, expensePayload{Expense: expense, Shares: shares}); err != nil {
		return models.Expense{}, 0, err
	}
	s.mutateSnapshot(ctx, req.LedgerID, func(snapshot *models.LedgerSnapshot) {
		for i := range snapshot.Expenses {
			if snapshot.Expenses[i].ID == expenseID {
				snapshot.Expenses[i] = expense
			}
		}
		kept := snapshot.Shares[:0]
		for _, share := range snapshot.Shares {
			if share.ExpenseID != expenseID {
				kept = append(kept, share)
			}
		}
		snapshot.Shares = append(kept, shares...)
	})
	return expense, Queued, nil
}

// DeleteExpense removes an expense and its shares. When the expense is
// cross-linked to an itinerary activity, the activity's cost fields are
// cleared as a compensating action: if that clear fails the deletion still
// stands and the disagreement is logged for the next sync to heal.
func (s *LedgerService) DeleteExpense(ctx context.Context, ledgerID, expenseID string) (Outcome, error) {
	var activityID *string
	if s.online() {
		expense, err := s.expenses.GetByID(ctx, expenseID)
		switch {
		case err == nil:
			activityID = expense.ActivityID
			if err := s.remoteDeleteExpense(ctx, expenseID, ledgerID, activityID); err == nil {
				s.evictExpense(ctx, expenseID)
				return Applied, nil
			} else if remoteRejected(err) {
				return 0, err
			}
		case err == ErrNotFound:
			return 0, ErrNotFound
		case remoteRejected(err):
			return 0, err
		}
	} else {
		// Offline we know the activity link only from the cached snapshot.
		snapshot, err := s.cachedSnapshot(ctx, ledgerID)
		if err == nil {
			for _, expense := range snapshot.Expenses {
				if expense.ID == expenseID {
					activityID = expense.ActivityID
				}
			}
		}
	}

	if err := s.queueMutation(ctx, KindExpense, models.ActionDelete, deletePayload{ID: expenseID, LedgerID: ledgerID, ActivityID: activityID}); err != nil {
		return 0, err
	}
	s.evictExpense(ctx, expenseID)
	s.mutateSnapshot(ctx, ledgerID, func(snapshot *models.LedgerSnapshot) {
		keptExpenses := snapshot.Expenses[:0]
		for _, expense := range snapshot.Expenses {
			if expense.ID != expenseID {
				keptExpenses = append(keptExpenses, expense)
			}
		}
		snapshot.Expenses = keptExpenses
		keptShares := snapshot.Shares[:0]
		for _, share := range snapshot.Shares {
			if share.ExpenseID != expenseID {
				keptShares = append(keptShares, share)
			}
		}
		snapshot.Shares = keptShares
	})
	return Queued, nil
}

func (s *LedgerService) cacheExpense(ctx context.Context, expense models.Expense, shares []models.Share) {
	if s.local == nil {
		return
	}
	payload, err := json.Marshal(expensePayload{Expense: expense, Shares: shares})
	if err != nil {
		return
	}
	if err := s.local.PutEntity(ctx, expense.ID, KindExpense, payload, s.now()); err != nil {
		s.log.Warn().Err(err).Str("expense_id", expense.ID).Msg("expense cache write failed")
	}
}

func (s *LedgerService) evictExpense(ctx context.Context, expenseID string) {
	if s.local == nil {
		return
	}
	if err := s.local.DeleteEntity(ctx, expenseID); err != nil {
		s.log.Warn().Err(err).Str("expense_id", expenseID).Msg("expense cache evict failed")
	}
}

// buildExpense validates the request and produces the expense row plus its
// divided shares. Nothing is persisted here.
func (s *LedgerService) buildExpense(ctx context.Context, req ExpenseRequest) (models.Expense, []models.Share, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Expense{}, nil, ErrEmptyTitle
	}
	if !validAmount(req.Amount) {
		return models.Expense{}, nil, ErrInvalidAmount
	}

	members, err := s.ledgerMembers(ctx, req.LedgerID)
	if err != nil {
		return models.Expense{}, nil, err
	}
	known := make(map[string]bool, len(members))
	memberIDs := make([]string, len(members))
	for i, member := range members {
		known[member.ID] = true
		memberIDs[i] = member.ID
	}
	if !known[req.PayerID] {
		return models.Expense{}, nil, ErrMemberNotFound
	}
	for _, portion := range req.Portions {
		if !known[portion.MemberID] {
			return models.Expense{}, nil, ErrMemberNotFound
		}
	}

	expense := models.Expense{
		ID:         uuid.NewString(),
		LedgerID:   req.LedgerID,
		PayerID:    req.PayerID,
		Title:      title,
		Amount:     money.Round2(req.Amount),
		Division:   req.Division,
		CategoryID: req.CategoryID,
		ActivityID: req.ActivityID,
		SpentAt:    req.SpentAt,
		CreatedAt:  s.now(),
	}
	shares, err := divideExpense(expense.ID, expense.Amount, req.Division, memberIDs, req.Portions)
	if err != nil {
		return models.Expense{}, nil, err
	}
	return expense, shares, nil
}

// ledgerMembers reads the membership used for validation and equal division,
// remote when online, cached snapshot otherwise.
func (s *LedgerService) ledgerMembers(ctx context.Context, ledgerID string) ([]models.Member, error) {
	if s.online() {
		return s.members.ListByLedger(ctx, ledgerID)
	}
	snapshot, err := s.cachedSnapshot(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	return snapshot.Members, nil
}

// Events are published after the transaction commits, never inside the
// closure: the runner retries serialization failures by re-running the
// closure, and a rolled-back write must not be announced.
func (s *LedgerService) remoteCreateExpense(ctx context.Context, expense models.Expense, shares []models.Share) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.expenses.Create(ctx, tx, expense, shares)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeCreated, KindExpense, expense.ID, expense.LedgerID, expense)
	return nil
}

func (s *LedgerService) remoteUpdateExpense(ctx context.Context, expense models.Expense, shares []models.Share) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.expenses.Update(ctx, tx, expense, shares)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeUpdated, KindExpense, expense.ID, expense.LedgerID, expense)
	return nil
}

func (s *LedgerService) remoteDeleteExpense(ctx context.Context, expenseID, ledgerID string, activityID *string) error {
	// The expenses row is authoritative for the activity link. A queued
	// delete built without a cached snapshot carries no activity id, and
	// skipping the compensating clear would leave the activity claiming a
	// cost for an expense that no longer exists.
	if expense, err := s.expenses.GetByID(ctx, expenseID); err == nil {
		activityID = expense.ActivityID
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.expenses.Delete(ctx, tx, expenseID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeDeleted, KindExpense, expenseID, ledgerID, nil)
	if activityID != nil {
		// Compensating action, not part of the delete transaction: the
		// expense is gone either way, a failed clear just leaves the activity
		// claiming a cost until its next write.
		clearErr := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
			return s.activities.ClearCost(ctx, tx, *activityID)
		})
		if clearErr != nil {
			s.log.Error().Err(clearErr).Str("activity_id", *activityID).Str("expense_id", expenseID).
				Msg("linked activity cost not cleared after expense delete")
		}
	}
	return nil
}
