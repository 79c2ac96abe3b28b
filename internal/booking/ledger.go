package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
)

// Ledger records payment attempts against caller-supplied idempotency
// keys. It is deliberately decoupled from any payment rail: its single
// job is answering "has this booking request been paid for, exactly once".
type Ledger struct {
	store Store
	audit AuditLog
}

func NewLedger(store Store, audit AuditLog) *Ledger {
	return &Ledger{store: store, audit: audit}
}

// Initiate creates an intent in Initiated, or hands back the stored intent
// unchanged when the key was seen before. Every retry, including one after
// a dropped response, receives the first-created record.
func (s *Ledger) Initiate(ctx context.Context, key string, requestID uuid.UUID, amount int64, currency string) (*domain.PaymentIntent, error) {
	if !domain.ValidIdempotencyKey(key) {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.store.Request(ctx, requestID); err != nil {
		return nil, err
	}

	intent := domain.NewPaymentIntent(key, requestID, amount, currency, time.Now())
	stored, created, err := s.store.CreateIntent(ctx, intent)
	if err != nil {
		return nil, err
	}
	if created {
		s.record(ctx, "payment.initiated", requestID, map[string]interface{}{
			"idempotency_key": key,
			"amount":          amount,
			"currency":        currency,
		})
	}
	return stored, nil
}

// Callback finalizes an intent from the upstream rail's result. Callbacks
// can be delivered more than once; replays return the stored terminal
// status without touching it.
func (s *Ledger) Callback(ctx context.Context, key string, externalStatus string) (*domain.PaymentIntent, error) {
	to := domain.PaymentFailed
	if externalStatus == "success" {
		to = domain.PaymentSucceeded
	}

	existing, err := s.store.IntentByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	req, err := s.store.Request(ctx, existing.BookingRequestID)
	if err != nil {
		return nil, err
	}

	notice := requestNotice(req.RequesterID, "payment.finalized", map[string]interface{}{
		"request_id": req.ID,
		"status":     to,
	})
	intent, finalized, err := s.store.FinalizeIntent(ctx, key, to, &notice)
	if err != nil {
		return nil, err
	}
	if finalized {
		observability.PaymentCallbacks.WithLabelValues(string(to)).Inc()
		s.record(ctx, "payment.finalized", intent.BookingRequestID, map[string]interface{}{
			"idempotency_key": key,
			"status":          to,
		})
	}
	return intent, nil
}

// StatusOf reports the ledger's verdict for a booking request.
func (s *Ledger) StatusOf(ctx context.Context, requestID uuid.UUID) (domain.PaymentStatus, error) {
	intent, err := s.store.IntentByRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	return intent.Status, nil
}

func (s *Ledger) record(ctx context.Context, action string, requestID uuid.UUID, data map[string]interface{}) {
	if s.audit != nil {
		data["request_id"] = requestID
		_ = s.audit.Record(ctx, action, requestID, data)
	}
}
