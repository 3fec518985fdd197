package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonatato/routeit-sub001/internal/models"
)

func (s *LedgerService) AddCategory(ctx context.Context, ledgerID, name string) (models.Category, Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, 0, ErrEmptyName
	}
	category := models.Category{ID: uuid.NewString(), LedgerID: ledgerID, Name: name}

	if s.online() {
		err := s.remoteCreateCategory(ctx, category)
		if err == nil {
			return category, Applied, nil
		}
		if remoteRejected(err) {
			return models.Category{}, 0, err
		}
	}
	if err := s.queueMutation(ctx, KindCategory, models.ActionCreate, category); err != nil {
		return models.Category{}, 0, err
	}
	return category, Queued, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, ledgerID, categoryID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeleteCategory(ctx, categoryID, ledgerID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	if err := s.queueMutation(ctx, KindCategory, models.ActionDelete, deletePayload{ID: categoryID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, ledgerID string) ([]models.Category, error) {
	if !s.online() {
		return nil, ErrRemoteUnavailable
	}
	return s.labels.ListCategories(ctx, ledgerID)
}

func (s *LedgerService) AddTag(ctx context.Context, ledgerID, name string) (models.Tag, Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, 0, ErrEmptyName
	}
	tag := models.Tag{ID: uuid.NewString(), LedgerID: ledgerID, Name: name}

	if s.online() {
		err := s.remoteCreateTag(ctx, tag)
		if err == nil {
			return tag, Applied, nil
		}
		if remoteRejected(err) {
			return models.Tag{}, 0, err
		}
	}
	if err := s.queueMutation(ctx, KindTag, models.ActionCreate, tag); err != nil {
		return models.Tag{}, 0, err
	}
	return tag, Queued, nil
}

func (s *LedgerService) DeleteTag(ctx context.Context, ledgerID, tagID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeleteTag(ctx, tagID, ledgerID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	if err := s.queueMutation(ctx, KindTag, models.ActionDelete, deletePayload{ID: tagID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) ListTags(ctx context.Context, ledgerID string) ([]models.Tag, error) {
	if !s.online() {
		return nil, ErrRemoteUnavailable
	}
	return s.labels.ListTags(ctx, ledgerID)
}

func (s *LedgerService) AttachTag(ctx context.Context, ledgerID, expenseID, tagID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteAttachTag(ctx, ledgerID, expenseID, tagID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	payload := tagLinkPayload{ExpenseID: expenseID, TagID: tagID, LedgerID: ledgerID}
	if err := s.queueMutation(ctx, KindTagLink, models.ActionCreate, payload); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) DetachTag(ctx context.Context, ledgerID, expenseID, tagID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDetachTag(ctx, ledgerID, expenseID, tagID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	payload := tagLinkPayload{ExpenseID: expenseID, TagID: tagID, LedgerID: ledgerID}
	if err := s.queueMutation(ctx, KindTagLink, models.ActionDelete, payload); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) AddComment(ctx context.Context, ledgerID, expenseID, authorID, body string) (models.Comment, Outcome, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Comment{}, 0, ErrEmptyName
	}
	comment := models.Comment{
		ID:        uuid.NewString(),
		ExpenseID: expenseID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if s.online() {
		err := s.remoteCreateComment(ctx, comment)
		if err == nil {
			return comment, Applied, nil
		}
		if remoteRejected(err) {
			return models.Comment{}, 0, err
		}
	}
	if err := s.queueMutation(ctx, KindComment, models.ActionCreate, comment); err != nil {
		return models.Comment{}, 0, err
	}
	return comment, Queued, nil
}

func (s *LedgerService) DeleteComment(ctx context.Context, ledgerID, commentID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeleteComment(ctx, commentID, ledgerID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	if err := s.queueMutation(ctx, KindComment, models.ActionDelete, deletePayload{ID: commentID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) ListComments(ctx context.Context, expenseID string) ([]models.Comment, error) {
	if !s.online() {
		return nil, ErrRemoteUnavailable
	}
	return s.comments.ListByExpense(ctx, expenseID)
}

func (s *LedgerService) AddReminder(ctx context.Context, ledgerID, memberID, message string, remindAt time.Time) (models.Reminder, Outcome, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Reminder{}, 0, ErrEmptyName
	}
	reminder := models.Reminder{
		ID:        uuid.NewString(),
		LedgerID:  ledgerID,
		MemberID:  memberID,
		Message:   message,
		RemindAt:  remindAt,
		CreatedAt: s.now(),
	}
	if s.online() {
		err := s.remoteCreateReminder(ctx, reminder)
		if err == nil {
			return reminder, Applied, nil
		}
		if remoteRejected(err) {
			return models.Reminder{}, 0, err
		}
	}
	if err := s.queueMutation(ctx, KindReminder, models.ActionCreate, reminder); err != nil {
		return models.Reminder{}, 0, err
	}
	return reminder, Queued, nil
}

func (s *LedgerService) DeleteReminder(ctx context.Context, ledgerID, reminderID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeleteReminder(ctx, reminderID, ledgerID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}
	if err := s.queueMutation(ctx, KindReminder, models.ActionDelete, deletePayload{ID: reminderID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	return Queued, nil
}

func (s *LedgerService) ListReminders(ctx context.Context, ledgerID string) ([]models.Reminder, error) {
	if !s.online() {
		return nil, ErrRemoteUnavailable
	}
	return s.reminders.ListByLedger(ctx, ledgerID)
}

func (s *LedgerService) remoteCreateCategory(ctx context.Context, category models.Category) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.CreateCategory(ctx, tx, category)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeCreated, KindCategory, category.ID, category.LedgerID, category)
	return nil
}

func (s *LedgerService) remoteDeleteCategory(ctx context.Context, categoryID, ledgerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.DeleteCategory(ctx, tx, categoryID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeDeleted, KindCategory, categoryID, ledgerID, nil)
	return nil
}

func (s *LedgerService) remoteCreateTag(ctx context.Context, tag models.Tag) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.CreateTag(ctx, tx, tag)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeCreated, KindTag, tag.ID, tag.LedgerID, tag)
	return nil
}

func (s *LedgerService) remoteDeleteTag(ctx context.Context, tagID, ledgerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.DeleteTag(ctx, tx, tagID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeDeleted, KindTag, tagID, ledgerID, nil)
	return nil
}

func (s *LedgerService) remoteAttachTag(ctx context.Context, ledgerID, expenseID, tagID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.AttachTag(ctx, tx, expenseID, tagID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeUpdated, KindExpense, expenseID, ledgerID, nil)
	return nil
}

func (s *LedgerService) remoteDetachTag(ctx context.Context, ledgerID, expenseID, tagID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.labels.DetachTag(ctx, tx, expenseID, tagID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeUpdated, KindExpense, expenseID, ledgerID, nil)
	return nil
}

func (s *LedgerService) remoteCreateComment(ctx context.Context, comment models.Comment) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.comments.Create(ctx, tx, comment)
	})
}

func (s *LedgerService) remoteDeleteComment(ctx context.Context, commentID, ledgerID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.comments.Delete(ctx, tx, commentID)
	})
}

func (s *LedgerService) remoteCreateReminder(ctx context.Context, reminder models.Reminder) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.reminders.Create(ctx, tx, reminder)
	})
}

func (s *LedgerService) remoteDeleteReminder(ctx context.Context, reminderID, ledgerID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.reminders.Delete(ctx, tx, reminderID)
	})
}
