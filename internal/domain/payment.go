package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IdempotencyKeyFor builds the canonical ledger key for a booking request.
// The format is part of the public contract: any client retrying an
// initiate call must reconstruct the identical key.
func IdempotencyKeyFor(requestID uuid.UUID) string {
	return "br_" + requestID.String()
}

// ValidIdempotencyKey reports whether a caller-supplied key is in the
// canonical br_<uuid> form.
func ValidIdempotencyKey(key string) bool {
	rest, ok := strings.CutPrefix(key, "br_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

func NewPaymentIntent(key string, requestID uuid.UUID, amount int64, currency string, now time.Time) PaymentIntent {
	return PaymentIntent{
		IdempotencyKey:   key,
		BookingRequestID: requestID,
		Amount:           amount,
		Currency:         currency,
		Status:           PaymentInitiated,
		CreatedAt:        now,
	}
}
