package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
)

type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Requests holds the negotiation state between requester and venue owner.
type Requests struct {
	store    Store
	registry VenueRegistry
	audit    AuditLog
}

func NewRequests(store Store, registry VenueRegistry, audit AuditLog) *Requests {
	return &Requests{store: store, registry: registry, audit: audit}
}

// Create opens a Pending request against an Available venue. Availability
// gates event creation, not request creation, so a venue may accumulate
// concurrent pending requests.
func (s *Requests) Create(ctx context.Context, venueID, requesterID uuid.UUID) (*domain.BookingRequest, error) {
	venue, err := s.registry.Venue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if venue.Status != domain.VenueAvailable {
		return nil, domain.ErrVenueUnavailable
	}

	req := domain.NewBookingRequest(*venue, requesterID, time.Now())
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.record(ctx, "booking_request.created", requesterID, map[string]interface{}{
		"request_id": req.ID,
		"venue_id":   venueID,
	})
	return &req, nil
}

// Decide moves a Pending request to Approved or Rejected. Only the
// request's owner may decide; any other state is an invalid transition,
// including a repeated decision.
func (s *Requests) Decide(ctx context.Context, requestID, callerID uuid.UUID, outcome Outcome) (*domain.BookingRequest, error) {
	req, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}

	to := domain.RequestRejected
	if outcome == OutcomeApprove {
		to = domain.RequestApproved
	}

	notice := requestNotice(req.RequesterID, "request.decided", map[string]interface{}{
		"request_id": requestID,
		"status":     to,
	})
	ok, err := s.store.CASRequestStatus(ctx, requestID, domain.RequestPending, to, &notice)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.CASConflicts.WithLabelValues("booking_request").Inc()
		return nil, domain.ErrInvalidTransition
	}

	req.Status = to
	s.record(ctx, "booking_request.decided", callerID, map[string]interface{}{
		"request_id": requestID,
		"status":     to,
	})
	return req, nil
}

// Cancel is requester-driven and legal from Pending or Approved.
func (s *Requests) Cancel(ctx context.Context, requestID, callerID uuid.UUID) (*domain.BookingRequest, error) {
	req, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != callerID {
		return nil, domain.ErrForbidden
	}

	notice := requestNotice(req.OwnerID, "request.cancelled", map[string]interface{}{
		"request_id": requestID,
	})
	for _, from := range []domain.RequestStatus{domain.RequestPending, domain.RequestApproved} {
		ok, err := s.store.CASRequestStatus(ctx, requestID, from, domain.RequestCancelled, &notice)
		if err != nil {
			return nil, err
		}
		if ok {
			req.Status = domain.RequestCancelled
			s.record(ctx, "booking_request.cancelled", callerID, map[string]interface{}{
				"request_id": requestID,
			})
			return req, nil
		}
	}
	observability.CASConflicts.WithLabelValues("booking_request").Inc()
	return nil, domain.ErrInvalidTransition
}

func (s *Requests) SentBy(ctx context.Context, requesterID uuid.UUID) ([]domain.BookingRequest, error) {
	return s.store.RequestsByRequester(ctx, requesterID)
}

func (s *Requests) ReceivedBy(ctx context.Context, ownerID uuid.UUID) ([]domain.BookingRequest, error) {
	return s.store.RequestsByOwner(ctx, ownerID)
}

func (s *Requests) record(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, action, userID, data)
	}
}

func requestNotice(userID uuid.UUID, kind string, payload map[string]interface{}) domain.Notice {
	body, _ := json.Marshal(payload)
	return domain.Notice{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Payload:   body,
		DedupeKey: uuid.NewString(),
	}
}
