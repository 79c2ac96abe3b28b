package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CodeLength is the length of a minted token code. 22 base62 characters
// carry ~131 bits of entropy, comfortably unguessable.
const CodeLength = 22

func NewTokenCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means the host is unusable
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

func NewBookingToken(req BookingRequest, ttl time.Duration, now time.Time) BookingToken {
	return BookingToken{
		Code:             NewTokenCode(),
		BookingRequestID: req.ID,
		VenueID:          req.VenueID,
		IssuedToUserID:   req.RequesterID,
		Status:           TokenActive,
		ExpiresAt:        now.Add(ttl),
		CreatedAt:        now,
	}
}

// ResolveTokenStatus is the lazy-expiry rule: a stored Active token whose
// expiry has passed is Expired for every reader, whether or not a sweep
// has flipped the stored row yet. All other statuses are terminal and
// reported as stored.
func ResolveTokenStatus(t BookingToken, now time.Time) TokenStatus {
	if t.Status == TokenActive && !t.ExpiresAt.After(now) {
		return TokenExpired
	}
	return t.Status
}

// VerifyError maps an effective (lazy-resolved) token status to the
// specific reason reported to callers.
func VerifyError(effective TokenStatus) error {
	switch effective {
	case TokenExpired:
		return ErrTokenExpired
	case TokenRevoked:
		return ErrTokenRevoked
	case TokenConsumed:
		return ErrTokenConsumed
	default:
		return nil
	}
}

func NewBookingRequest(venue Venue, requesterID uuid.UUID, now time.Time) BookingRequest {
	return BookingRequest{
		ID:             uuid.New(),
		VenueID:        venue.ID,
		RequesterID:    requesterID,
		OwnerID:        venue.OwnerID,
		Status:         RequestPending,
		ConversationID: uuid.NewString(),
		CreatedAt:      now,
	}
}
