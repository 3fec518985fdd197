package store

import (
	"context"
	"database/sql"

	"github.com/jonatato/routeit-sub001/internal/models"
)

type ExpenseStore struct {
	db DB
}

func NewExpenseStore(db DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

// Create inserts an expense with its shares. Callers run it inside a
// transaction so an expense never lands without its shares.
func (s *ExpenseStore) Create(ctx context.Context, tx Execer, expense models.Expense, shares []models.Share) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (id, ledger_id, payer_id, title, amount, division, category_id, activity_id, spent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, expense.ID, expense.LedgerID, expense.PayerID, expense.Title, expense.Amount, expense.Division, expense.CategoryID, expense.ActivityID, expense.SpentAt)
	if err != nil {
		return err
	}
	return s.insertShares(ctx, tx, shares)
}

// Update rewrites the expense row and replaces its share set.
func (s *ExpenseStore) Update(ctx context.Context, tx Execer, expense models.Expense, shares []models.Share) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET payer_id = $1, title = $2, amount = $3, division = $4, category_id = $5, spent_at = $6
		WHERE id = $7
	`, expense.PayerID, expense.Title, expense.Amount, expense.Division, expense.CategoryID, expense.SpentAt, expense.ID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE expense_id = $1`, expense.ID); err != nil {
		return err
	}
	return s.insertShares(ctx, tx, shares)
}

// insertShares is conflict-safe for the same reason the expense insert is:
// the reconciliation loop may replay a create whose first attempt landed but
// crashed before the mutation was dequeued, and the rerun must be a no-op
// rather than a unique-key failure.
func (s *ExpenseStore) insertShares(ctx context.Context, tx Execer, shares []models.Share) error {
	query := `
		INSERT INTO shares (id, expense_id, member_id, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	for _, share := range shares {
		if _, err := tx.ExecContext(ctx, query, share.ID, share.ExpenseID, share.MemberID, share.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the expense; shares cascade via the foreign key.
func (s *ExpenseStore) Delete(ctx context.Context, tx Execer, expenseID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID)
	return err
}

func (s *ExpenseStore) GetByID(ctx context.Context, expenseID string) (models.Expense, error) {
	var expense models.Expense
	err := s.db.GetContext(ctx, &expense, `
		SELECT id, ledger_id, payer_id, title, amount, division, category_id, activity_id, spent_at, created_at
		FROM expenses
		WHERE id = $1
	`, expenseID)
	if err == sql.ErrNoRows {
		return models.Expense{}, ErrNotFound
	}
	if err != nil {
		return models.Expense{}, err
	}
	return expense, nil
}

func (s *ExpenseStore) ListByLedger(ctx context.Context, ledgerID string) ([]models.Expense, error) {
	var expenses []models.Expense
	err := s.db.SelectContext(ctx, &expenses, `
		SELECT id, ledger_id, payer_id, title, amount, division, category_id, activity_id, spent_at, created_at
		FROM expenses
		WHERE ledger_id = $1
		ORDER BY created_at, id
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *ExpenseStore) SharesByExpense(ctx context.Context, expenseID string) ([]models.Share, error) {
	var shares []models.Share
	err := s.db.SelectContext(ctx, &shares, `
		SELECT id, expense_id, member_id, amount
		FROM shares
		WHERE expense_id = $1
		ORDER BY id
	`, expenseID)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (s *ExpenseStore) SharesByLedger(ctx context.Context, ledgerID string) ([]models.Share, error) {
	var shares []models.Share
	err := s.db.SelectContext(ctx, &shares, `
		SELECT s.id, s.expense_id, s.member_id, s.amount
		FROM shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE e.ledger_id = $1
		ORDER BY s.id
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return shares, nil
}
