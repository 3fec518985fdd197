package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/money"
)

type PaymentRequest struct {
	LedgerID string
	PayerID  string
	PayeeID  string
	Amount   decimal.Decimal
	Note     string
	PaidAt   *time.Time
}

// RecordPayment records a direct member-to-member transfer, used both for
// real-world settlements and ad-hoc reimbursements.
func (s *LedgerService) RecordPayment(ctx context.Context, req PaymentRequest) (models.Payment, Outcome, error) {
	if !validAmount(req.Amount) {
		return models.Payment{}, 0, ErrInvalidAmount
	}
	if req.PayerID == req.PayeeID {
		return models.Payment{}, 0, ErrSamePayerPayee
	}
	members, err := s.ledgerMembers(ctx, req.LedgerID)
	if err != nil {
		return models.Payment{}, 0, err
	}
	known := make(map[string]bool, len(members))
	for _, member := range members {
		known[member.ID] = true
	}
	if !known[req.PayerID] || !known[req.PayeeID] {
		return models.Payment{}, 0, ErrMemberNotFound
	}

	payment := models.Payment{
		ID:        uuid.NewString(),
		LedgerID:  req.LedgerID,
		PayerID:   req.PayerID,
		PayeeID:   req.PayeeID,
		Amount:    money.Round2(req.Amount),
		Note:      req.Note,
		PaidAt:    req.PaidAt,
		CreatedAt: s.now(),
	}

	if s.online() {
		err := s.remoteCreatePayment(ctx, payment)
		if err == nil {
			return payment, Applied, nil
		}
		if remoteRejected(err) {
			return models.Payment{}, 0, err
		}
		s.log.Info().Err(err).Str("payment_id", payment.ID).Msg("remote unreachable, queueing payment create")
	}

	if err := s.queueMutation(ctx, KindPayment, models.ActionCreate, payment); err != nil {
		return models.Payment{}, 0, err
	}
	s.mutateSnapshot(ctx, req.LedgerID, func(snapshot *models.LedgerSnapshot) {
		snapshot.Payments = append(snapshot.Payments, payment)
	})
	return payment, Queued, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, ledgerID, paymentID string) (Outcome, error) {
	if s.online() {
		if err := s.remoteDeletePayment(ctx, paymentID, ledgerID); err == nil {
			return Applied, nil
		} else if remoteRejected(err) {
			return 0, err
		}
	}

	if err := s.queueMutation(ctx, KindPayment, models.ActionDelete, deletePayload{ID: paymentID, LedgerID: ledgerID}); err != nil {
		return 0, err
	}
	s.mutateSnapshot(ctx, ledgerID, func(snapshot *models.LedgerSnapshot) {
		kept := snapshot.Payments[:0]
		for _, payment := range snapshot.Payments {
			if payment.ID != paymentID {
				kept = append(kept, payment)
			}
		}
		snapshot.Payments = kept
	})
	return Queued, nil
}

func (s *LedgerService) remoteCreatePayment(ctx context.Context, payment models.Payment) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.payments.Create(ctx, tx, payment)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeCreated, KindPayment, payment.ID, payment.LedgerID, payment)
	return nil
}

func (s *LedgerService) remoteUpdatePayment(ctx context.Context, payment models.Payment) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.payments.Update(ctx, tx, payment)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeUpdated, KindPayment, payment.ID, payment.LedgerID, payment)
	return nil
}

func (s *LedgerService) remoteDeletePayment(ctx context.Context, paymentID, ledgerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.payments.Delete(ctx, tx, paymentID)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.ChangeDeleted, KindPayment, paymentID, ledgerID, nil)
	return nil
}
