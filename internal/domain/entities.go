package domain

import (
	"time"

	"github.com/google/uuid"
)

type VenueStatus string

const (
	VenueAvailable   VenueStatus = "AVAILABLE"
	VenueBooked      VenueStatus = "BOOKED"
	VenueMaintenance VenueStatus = "MAINTENANCE"
	VenueClosed      VenueStatus = "CLOSED"
)

type RequestStatus string

const (
	RequestPending        RequestStatus = "PENDING"
	RequestApproved       RequestStatus = "APPROVED"
	RequestRejected       RequestStatus = "REJECTED"
	RequestTokenGenerated RequestStatus = "TOKEN_GENERATED"
	RequestCancelled      RequestStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "INITIATED"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type TokenStatus string

const (
	TokenActive   TokenStatus = "ACTIVE"
	TokenExpired  TokenStatus = "EXPIRED"
	TokenRevoked  TokenStatus = "REVOKED"
	TokenConsumed TokenStatus = "CONSUMED"
)

type Location struct {
	Name    string
	Address string
	City    string
	State   string
	Country string
	Lat     float64
	Lng     float64
}

type Venue struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Location    Location
	MaxCapacity int
	Status      VenueStatus
}

// Snapshot copies the fields an event locks in at redemption time. Events
// store the copy, never a reference, so later venue edits stay invisible
// to already-created events.
func (v Venue) Snapshot() VenueSnapshot {
	return VenueSnapshot{
		VenueID:     v.ID,
		Name:        v.Name,
		Location:    v.Location,
		MaxCapacity: v.MaxCapacity,
	}
}

type VenueSnapshot struct {
	VenueID     uuid.UUID
	Name        string
	Location    Location
	MaxCapacity int
}

type BookingRequest struct {
	ID             uuid.UUID
	VenueID        uuid.UUID
	RequesterID    uuid.UUID
	OwnerID        uuid.UUID // denormalized from the venue at creation, immutable
	Status         RequestStatus
	ConversationID string
	CreatedAt      time.Time
}

type PaymentIntent struct {
	IdempotencyKey   string
	BookingRequestID uuid.UUID
	Amount           int64 // minor units
	Currency         string
	Status           PaymentStatus
	CreatedAt        time.Time
	FinalizedAt      *time.Time
}

type BookingToken struct {
	Code             string
	BookingRequestID uuid.UUID
	VenueID          uuid.UUID
	IssuedToUserID   uuid.UUID
	Status           TokenStatus
	ExpiresAt        time.Time
	ExtensionCount   int
	CreatedAt        time.Time
}

type Event struct {
	ID               uuid.UUID
	OrganizerID      uuid.UUID
	Title            string
	BookingTokenCode *string
	Venue            VenueSnapshot
	CreatedAt        time.Time
}

// Notice is a notification destined for the messaging collaborator. It is
// written to the outbox in the same transaction as the state change it
// reports and relayed to the broker asynchronously.
type Notice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      string
	Payload   []byte
	DedupeKey string
}
