package store

import (
	"context"
	"database/sql"

	"github.com/jonatato/routeit-sub001/internal/models"
)

type MemberStore struct {
	db DB
}

func NewMemberStore(db DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) Create(ctx context.Context, tx Execer, member models.Member) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, ledger_id, user_id, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, member.ID, member.LedgerID, member.UserID, member.Name)
	return err
}

func (s *MemberStore) Update(ctx context.Context, tx Execer, member models.Member) error {
	// COALESCE keeps an existing account link when the update does not carry
	// one (offline renames know only the id and the new name).
	_, err := tx.ExecContext(ctx, `
		UPDATE members
		SET name = $1, user_id = COALESCE($2, user_id)
		WHERE id = $3
	`, member.Name, member.UserID, member.ID)
	return err
}

// Delete removes the member row only. Expenses they paid and shares charged
// to them keep their references; those render as "Unknown" downstream.
func (s *MemberStore) Delete(ctx context.Context, tx Execer, memberID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, memberID)
	return err
}

func (s *MemberStore) GetByID(ctx context.Context, memberID string) (models.Member, error) {
	var member models.Member
	err := s.db.GetContext(ctx, &member, `
		SELECT id, ledger_id, user_id, name, created_at
		FROM members
		WHERE id = $1
	`, memberID)
	if err == sql.ErrNoRows {
		return models.Member{}, ErrNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	return member, nil
}

func (s *MemberStore) ListByLedger(ctx context.Context, ledgerID string) ([]models.Member, error) {
	var members []models.Member
	err := s.db.SelectContext(ctx, &members, `
		SELECT id, ledger_id, user_id, name, created_at
		FROM members
		WHERE ledger_id = $1
		ORDER BY created_at, id
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// IsMember reports whether a user is linked to any member of the ledger.
func (s *MemberStore) IsMember(ctx context.Context, ledgerID, userID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM members WHERE ledger_id = $1 AND user_id = $2
		)
	`, ledgerID, userID)
	return exists, err
}
