package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonatato/routeit-sub001/internal/models"
)

// AddMember adds a participant to a ledger. UserID may be nil for
// placeholder people not yet linked to an account.
func (s *LedgerService) AddMember(ctx context.Context, ledgerID, name string, userID *string) (models.Member, Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Member{}, 0, ErrEmptyName
	}
	member := models.Member{
		ID:        uuid.NewString(),
		LedgerID:  ledgerID,
		UserID:    userID,
		Name:      name,
		CreatedAt: s.now(),
	}

	if s.online() {
		err := s.remoteCreateMember(ctx, member)
		if err == nil {
			return member, Applied, nil
		}
		if remoteRejected(err) {
			return models.Member{}, 0, err
		}
		s.log.Info().Err(err).Str("member_id", member.ID).Msg("remote unreachable, queueing member create")
	}

	if err := s.queueMutation(ctx, KindMember, models.ActionCreate, member); err != nil {
		return models.Member{}, 0, err
	}
	s.mutateSnapshot(ctx, ledgerID, func(snapshot *models.LedgerSnapshot) {
		snapshot.Members = append(snapshot.Members, member)
	})
	return member, Queued, nil
}

func (s *LedgerService) RenameMember(ctx context.Context, ledgerID, memberID, name string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrEmptyName
	}
	member := models.Member{ID: memberID, LedgerID: ledgerID, Name: name}

	if s.online() {
		current, err := s.members.GetByID(ctx, memberID)
		switch {
		case err == nil:
			member.UserID = current.UserID
			member.CreatedAt = current.CreatedAt
			if err := s.remoteUpdateMember(ctx, member); err == nil {
				return Applied, nil
			} else if remoteRejected(err) {
				return 0, err
			}
		case err == ErrNotFound:
			return 0, ErrNotFound
		case remoteRejected(err):
			return 0, err
		}
		// unreachable remote: fall through to the queue
	}

	if err := s.queueMutation(ctx, KindMember, models.ActionUpdate, member); err != nil {
		return 0, err
	}
	s.mutateSnapshot(ctx, ledgerID, func(snapshot *models.LedgerSnapshot) {
		for i := range snapshot.Members {
			if snapshot.Members[i].ID == memberID {
				snapshot.Members[i].Name = name
			}
		}
	})
	return Queued, nil
}

// RemoveMember deletes the member row. Expenses they paid and shares charged
// to them are not touched; those references render as "Unknown" from then on.
func (s *LedgerService) RemoveMember(ctx context.Context, ledgerID, memberID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeleteMember(ctx, memberID, ledgerID); err != nil {
			if remoteRejected(err) {
				return 0, err
			}
		} else {
			return Applied, nil
		}
	}

	if err := s.queueMutation(ctx, KindMember, models.ActionDelete, deletePayload{ID: memberID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	s.mutateSnapshot(ctx, ledgerID, func(snapshot *models.LedgerSnapshot) {
		kept := snapshot.Members[:0]
		for _, member := range snapshot.Members {
			if member.ID != memberID {
				kept = append(kept, member)
			}
		}
		snapshot.Members = kept
	})
	return Queued, nil
}

func (s *LedgerService) remoteCreateMember(ctx context.Context, member models.Member) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.members.Create(ctx, tx, member)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeCreated, KindMember, member.ID, member.LedgerID, member)
	return nil
}

func (s *LedgerService) remoteUpdateMember(ctx context.Context, member models.Member) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.members.Update(ctx, tx, member)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeUpdated, KindMember, member.ID, member.LedgerID, member)
	return nil
}

func (s *LedgerService) remoteDeleteMember(ctx context.Context, memberID, ledgerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.members.Delete(ctx, tx, memberID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeDeleted, KindMember, memberID, ledgerID, nil)
	return nil
}
