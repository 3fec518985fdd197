package store

import (
	"context"

	"github.com/jonatato/routeit-sub001/internal/models"
)

type ReminderStore struct {
	db DB
}

func NewReminderStore(db DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func (s *ReminderStore) Create(ctx context.Context, tx Execer, reminder models.Reminder) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reminders (id, ledger_id, member_id, message, remind_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, reminder.ID, reminder.LedgerID, reminder.MemberID, reminder.Message, reminder.RemindAt)
	return err
}

func (s *ReminderStore) Delete(ctx context.Context, tx Execer, reminderID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, reminderID)
	return err
}

func (s *ReminderStore) ListByLedger(ctx context.Context, ledgerID string) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := s.db.SelectContext(ctx, &reminders, `
		SELECT id, ledger_id, member_id, message, remind_at, created_at
		FROM reminders
		WHERE ledger_id = $1
		ORDER BY remind_at, id
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return reminders, nil
}
