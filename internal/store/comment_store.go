package store

import (
	"context"

	"github.com/jonatato/routeit-sub001/internal/models"
)

type CommentStore struct {
	db DB
}

func NewCommentStore(db DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) Create(ctx context.Context, tx Execer, comment models.Comment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO comments (id, expense_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, comment.ID, comment.ExpenseID, comment.AuthorID, comment.Body)
	return err
}

func (s *CommentStore) Delete(ctx context.Context, tx Execer, commentID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	return err
}

func (s *CommentStore) ListByExpense(ctx context.Context, expenseID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.SelectContext(ctx, &comments, `
		SELECT id, expense_id, author_id, body, created_at
		FROM comments
		WHERE expense_id = $1
		ORDER BY created_at, id
	`, expenseID)
	if err != nil {
		return nil, err
	}
	return comments, nil
}
