package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sportshub/venue-booking/internal/domain"
)

// CreateIntent is idempotent on the key: a second initiate returns the
// first-created intent unchanged, whatever its amount or status.
func (r *Repository) CreateIntent(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO payment_intents (idempotency_key, booking_request_id, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, intent.IdempotencyKey, intent.BookingRequestID, intent.Amount, intent.Currency, intent.Status, intent.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	if result.RowsAffected() > 0 {
		return &intent, true, nil
	}
	existing, err := r.IntentByKey(ctx, intent.IdempotencyKey)
	return existing, false, err
}

func (r *Repository) FinalizeIntent(ctx context.Context, key string, to domain.PaymentStatus, notice *domain.Notice) (*domain.PaymentIntent, bool, error) {
	var finalized bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE payment_intents SET status = $2, finalized_at = now()
			WHERE idempotency_key = $1 AND status = $3
		`, key, to, domain.PaymentInitiated)
		if err != nil {
			return err
		}
		finalized = result.RowsAffected() > 0
		if finalized && notice != nil {
			return insertNotice(ctx, tx, *notice)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	intent, err := r.IntentByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return intent, finalized, nil
}

func (r *Repository) IntentByKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	return scanIntent(r.pool.QueryRow(ctx, `
		SELECT idempotency_key, booking_request_id, amount, currency, status, created_at, finalized_at
		FROM payment_intents WHERE idempotency_key = $1
	`, key))
}

func (r *Repository) IntentByRequest(ctx context.Context, requestID uuid.UUID) (*domain.PaymentIntent, error) {
	return scanIntent(r.pool.QueryRow(ctx, `
		SELECT idempotency_key, booking_request_id, amount, currency, status, created_at, finalized_at
		FROM payment_intents WHERE booking_request_id = $1
	`, requestID))
}

func scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := row.Scan(&intent.IdempotencyKey, &intent.BookingRequestID, &intent.Amount, &intent.Currency, &intent.Status, &intent.CreatedAt, &intent.FinalizedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}
