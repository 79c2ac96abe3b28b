package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
)

// Store is the transactional persistence the pipeline runs on. Every
// status flip is a compare-and-swap: the update commits only if the row is
// still in the expected state, and the loser of a race observes ok=false
// (or a sentinel error) rather than an inconsistent view. A non-nil notice
// is recorded in the same transaction as the state change it reports.
type Store interface {
	CreateRequest(ctx context.Context, r domain.BookingRequest) error
	Request(ctx context.Context, id uuid.UUID) (*domain.BookingRequest, error)
	RequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.BookingRequest, error)
	RequestsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.BookingRequest, error)
	CASRequestStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notice *domain.Notice) (bool, error)

	// CreateIntent inserts the intent unless one already exists for its
	// idempotency key, in which case the stored intent is returned
	// unchanged with created=false.
	CreateIntent(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, bool, error)
	// FinalizeIntent flips Initiated to the given terminal status. An
	// already-finalized intent is returned as-is with finalized=false.
	// Returns domain.ErrNotFound for an unknown key.
	FinalizeIntent(ctx context.Context, key string, to domain.PaymentStatus, notice *domain.Notice) (*domain.PaymentIntent, bool, error)
	IntentByKey(ctx context.Context, key string) (*domain.PaymentIntent, error)
	IntentByRequest(ctx context.Context, requestID uuid.UUID) (*domain.PaymentIntent, error)

	// IssueToken atomically moves the booking request from Approved to
	// TokenGenerated and inserts the token. Returns
	// domain.ErrAlreadyTokenized when another caller won the race.
	IssueToken(ctx context.Context, tok domain.BookingToken, notice domain.Notice) error
	TokenByCode(ctx context.Context, code string) (*domain.BookingToken, error)
	TokenByRequest(ctx context.Context, requestID uuid.UUID) (*domain.BookingToken, error)
	// MarkTokenExpired flips a stored Active token whose expiry has passed
	// to Expired. ok=false when the row was not in that state.
	MarkTokenExpired(ctx context.Context, code string) (bool, error)
	// ExtendToken pushes expiry forward on a live Active token:
	// expiresAt = max(expiresAt, now) + extra, extensionCount + 1.
	ExtendToken(ctx context.Context, code string, extra time.Duration) (*domain.BookingToken, bool, error)
	// RevokeToken flips a live Active token to Revoked.
	RevokeToken(ctx context.Context, code string, notice domain.Notice) (bool, error)
	// ConsumeToken flips a live Active token to Consumed and inserts the
	// event in the same transaction. ok=false when the CAS lost.
	ConsumeToken(ctx context.Context, code string, ev domain.Event, notice domain.Notice) (bool, error)

	CreateEvent(ctx context.Context, ev domain.Event) error
	Event(ctx context.Context, id uuid.UUID) (*domain.Event, error)
	// EventByToken looks up the event a token's redemption created.
	EventByToken(ctx context.Context, code string) (*domain.Event, error)
	StaleActiveTokens(ctx context.Context, now time.Time, limit int) ([]domain.BookingToken, error)
}

// VenueRegistry is the read-mostly venue lookup the pipeline depends on.
type VenueRegistry interface {
	Venue(ctx context.Context, id uuid.UUID) (*domain.Venue, error)
}

// AuditLog records lifecycle actions. Implementations log their own
// failures; recording is best-effort and never blocks a transition.
type AuditLog interface {
	Record(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error
}
