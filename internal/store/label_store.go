package store

import (
	"context"

	"github.com/jonatato/routeit-sub001/internal/models"
)

// LabelStore manages the ledger-scoped grouping labels: categories and tags.
type LabelStore struct {
	db DB
}

func NewLabelStore(db DB) *LabelStore {
	return &LabelStore{db: db}
}

func (s *LabelStore) CreateCategory(ctx context.Context, tx Execer, category models.Category) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, ledger_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, category.ID, category.LedgerID, category.Name)
	return err
}

func (s *LabelStore) DeleteCategory(ctx context.Context, tx Execer, categoryID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	return err
}

func (s *LabelStore) ListCategories(ctx context.Context, ledgerID string) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, ledger_id, name
		FROM categories
		WHERE ledger_id = $1
		ORDER BY name
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *LabelStore) CreateTag(ctx context.Context, tx Execer, tag models.Tag) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tags (id, ledger_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, tag.ID, tag.LedgerID, tag.Name)
	return err
}

func (s *LabelStore) DeleteTag(ctx context.Context, tx Execer, tagID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, tagID)
	return err
}

func (s *LabelStore) ListTags(ctx context.Context, ledgerID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.SelectContext(ctx, &tags, `
		SELECT id, ledger_id, name
		FROM tags
		WHERE ledger_id = $1
		ORDER BY name
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *LabelStore) AttachTag(ctx context.Context, tx Execer, expenseID, tagID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO expense_tags (expense_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, expenseID, tagID)
	return err
}

func (s *LabelStore) DetachTag(ctx context.Context, tx Execer, expenseID, tagID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM expense_tags WHERE expense_id = $1 AND tag_id = $2
	`, expenseID, tagID)
	return err
}

func (s *LabelStore) TagsByExpense(ctx context.Context, expenseID string) ([]models.Tag, error) {
	var tags []models.Tag
	err := s.db.SelectContext(ctx, &tags, `
		SELECT t.id, t.ledger_id, t.name
		FROM tags t
		JOIN expense_tags et ON et.tag_id = t.id
		WHERE et.expense_id = $1
		ORDER BY t.name
	`, expenseID)
	if err != nil {
		return nil, err
	}
	return tags, nil
}
