package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonatato/routeit-sub001/internal/localstore"
	"github.com/jonatato/routeit-sub001/internal/models"
)

// Queued mutation kinds. The payload formats below are the replay contract
// between the service and the reconciliation loop.
const (
	KindMember   = "member"
	KindExpense  = "expense"
	KindPayment  = "payment"
	KindCategory = "category"
	KindTag      = "tag"
	KindTagLink  = "tag_link"
	KindComment  = "comment"
	KindReminder = "reminder"
)

type expensePayload struct {
	Expense models.Expense `json:"expense"`
	Shares  []models.Share `json:"shares"`
}

type deletePayload struct {
	ID         string  `json:"id"`
	LedgerID   string  `json:"ledger_id"`
	ActivityID *string `json:"activity_id,omitempty"`
}

type tagLinkPayload struct {
	ExpenseID string `json:"expense_id"`
	TagID     string `json:"tag_id"`
	LedgerID  string `json:"ledger_id"`
}

func snapshotKey(ledgerID string) string {
	return "ledger:" + ledgerID + ":snapshot"
}

// queueMutation records an offline intent. Entity ids are generated before
// queueing, so replaying a create twice is a no-op at the remote system
// (conflict-safe inserts keyed by id).
func (s *LedgerService) queueMutation(ctx context.Context, kind string, action models.MutationAction, payload any) error {
	if s.local == nil {
		return ErrRemoteUnavailable
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.local.AppendMutation(ctx, localstore.Mutation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Action:    string(action),
		Payload:   data,
		CreatedAt: s.now(),
	})
}

// mutateSnapshot applies an optimistic edit to the cached ledger snapshot so
// the UI reflects the queued change immediately. A missing cached snapshot is
// fine; the queue is the durable record, the view is just presentation.
func (s *LedgerService) mutateSnapshot(ctx context.Context, ledgerID string, mutate func(*models.LedgerSnapshot)) {
	if s.local == nil {
		return
	}
	var snapshot models.LedgerSnapshot
	if _, err := s.local.GetView(ctx, snapshotKey(ledgerID), &snapshot); err != nil {
		return
	}
	mutate(&snapshot)
	if err := s.local.PutView(ctx, snapshotKey(ledgerID), snapshot, s.now()); err != nil {
		s.log.Warn().Err(err).Str("ledger_id", ledgerID).Msg("optimistic snapshot update failed")
	}
}

// DeadLetters lists queued mutations that exhausted their retry budget. They
// stay parked until a support path resolves them; the list is how the user
// finds out which offline edits never made it.
func (s *LedgerService) DeadLetters(ctx context.Context) ([]models.PendingMutation, error) {
	if s.local == nil {
		return nil, nil
	}
	rows, err := s.local.ListDeadMutations(ctx)
	if err != nil {
		return nil, err
	}
	dead := make([]models.PendingMutation, 0, len(rows))
	for _, row := range rows {
		dead = append(dead, models.PendingMutation{
			ID:        row.ID,
			Kind:      row.Kind,
			Action:    models.MutationAction(row.Action),
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
			DeadAt:    row.DeadAt,
		})
	}
	return dead, nil
}

// ApplyMutation replays one queued mutation against the remote system. It is
// the reconciliation loop's applier: create replays are idempotent because
// every entity carries a client-generated id and the remote inserts are
// conflict-safe, so a mutation that succeeded remotely but crashed before
// being dequeued applies cleanly a second time.
func (s *LedgerService) ApplyMutation(ctx context.Context, m models.PendingMutation) error {
	switch m.Kind {
	case KindExpense:
		switch m.Action {
		case models.ActionCreate, models.ActionUpdate:
			var payload expensePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			if m.Action == models.ActionCreate {
				return s.remoteCreateExpense(ctx, payload.Expense, payload.Shares)
			}
			return s.remoteUpdateExpense(ctx, payload.Expense, payload.Shares)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteExpense(ctx, payload.ID, payload.LedgerID, payload.ActivityID)
		}

	case KindMember:
		switch m.Action {
		case models.ActionCreate, models.ActionUpdate:
			var member models.Member
			if err := json.Unmarshal(m.Payload, &member); err != nil {
				return err
			}
			if m.Action == models.ActionCreate {
				return s.remoteCreateMember(ctx, member)
			}
			return s.remoteUpdateMember(ctx, member)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteMember(ctx, payload.ID, payload.LedgerID)
		}

	case KindPayment:
		switch m.Action {
		case models.ActionCreate, models.ActionUpdate:
			var payment models.Payment
			if err := json.Unmarshal(m.Payload, &payment); err != nil {
				return err
			}
			if m.Action == models.ActionCreate {
				return s.remoteCreatePayment(ctx, payment)
			}
			return s.remoteUpdatePayment(ctx, payment)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeletePayment(ctx, payload.ID, payload.LedgerID)
		}

	case KindCategory:
		switch m.Action {
		case models.ActionCreate:
			var category models.Category
			if err := json.Unmarshal(m.Payload, &category); err != nil {
				return err
			}
			return s.remoteCreateCategory(ctx, category)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteCategory(ctx, payload.ID, payload.LedgerID)
		}

	case KindTag:
		switch m.Action {
		case models.ActionCreate:
			var tag models.Tag
			if err := json.Unmarshal(m.Payload, &tag); err != nil {
				return err
			}
			return s.remoteCreateTag(ctx, tag)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteTag(ctx, payload.ID, payload.LedgerID)
		}

	case KindTagLink:
		var payload tagLinkPayload
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return err
		}
		switch m.Action {
		case models.ActionCreate:
			return s.remoteAttachTag(ctx, payload.LedgerID, payload.ExpenseID, payload.TagID)
		case models.ActionDelete:
			return s.remoteDetachTag(ctx, payload.LedgerID, payload.ExpenseID, payload.TagID)
		}

	case KindComment:
		switch m.Action {
		case models.ActionCreate:
			var comment models.Comment
			if err := json.Unmarshal(m.Payload, &comment); err != nil {
				return err
			}
			return s.remoteCreateComment(ctx, comment)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteComment(ctx, payload.ID, payload.LedgerID)
		}

	case KindReminder:
		switch m.Action {
		case models.ActionCreate:
			var reminder models.Reminder
			if err := json.Unmarshal(m.Payload, &reminder); err != nil {
				return err
			}
			return s.remoteCreateReminder(ctx, reminder)
		case models.ActionDelete:
			var payload deletePayload
			if err := json.Unmarshal(m.Payload, &payload); err != nil {
				return err
			}
			return s.remoteDeleteReminder(ctx, payload.ID, payload.LedgerID)
		}
	}
	return fmt.Errorf("unknown mutation %s/%s", m.Kind, m.Action)
}
