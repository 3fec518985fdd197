package store

import (
	"context"
	"database/sql"

	"github.com/jonatato/routeit-sub001/internal/models"
)

type PaymentStore struct {
	db DB
}

func NewPaymentStore(db DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, tx Execer, payment models.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, ledger_id, payer_id, payee_id, amount, note, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, payment.ID, payment.LedgerID, payment.PayerID, payment.PayeeID, payment.Amount, payment.Note, payment.PaidAt)
	return err
}

func (s *PaymentStore) Update(ctx context.Context, tx Execer, payment models.Payment) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET payer_id = $1, payee_id = $2, amount = $3, note = $4, paid_at = $5
		WHERE id = $6
	`, payment.PayerID, payment.PayeeID, payment.Amount, payment.Note, payment.PaidAt, payment.ID)
	return err
}

func (s *PaymentStore) Delete(ctx context.Context, tx Execer, paymentID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	return err
}

func (s *PaymentStore) GetByID(ctx context.Context, paymentID string) (models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, `
		SELECT id, ledger_id, payer_id, payee_id, amount, note, paid_at, created_at
		FROM payments
		WHERE id = $1
	`, paymentID)
	if err == sql.ErrNoRows {
		return models.Payment{}, ErrNotFound
	}
	if err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

func (s *PaymentStore) ListByLedger(ctx context.Context, ledgerID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments, `
		SELECT id, ledger_id, payer_id, payee_id, amount, note, paid_at, created_at
		FROM payments
		WHERE ledger_id = $1
		ORDER BY created_at, id
	`, ledgerID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}
