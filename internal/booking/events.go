package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
)

// Events is the event-creation collaborator's entry point. With a token
// code it runs verify-then-redeem and the event inherits the locked venue
// snapshot; without one it is a general event with an owner-supplied
// location.
type Events struct {
	store    Store
	redeemer *Redeemer
}

func NewEvents(store Store, redeemer *Redeemer) *Events {
	return &Events{store: store, redeemer: redeemer}
}

func (s *Events) Create(ctx context.Context, organizerID uuid.UUID, title string, tokenCode *string, loc domain.Location, capacity int) (*domain.Event, error) {
	if tokenCode != nil {
		if _, _, err := s.redeemer.Verify(ctx, *tokenCode); err != nil {
			return nil, err
		}
		return s.redeemer.Redeem(ctx, *tokenCode, organizerID, title)
	}

	ev := domain.Event{
		ID:          uuid.New(),
		OrganizerID: organizerID,
		Title:       title,
		Venue:       domain.VenueSnapshot{Location: loc, MaxCapacity: capacity},
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateEvent(ctx, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Events) Get(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.store.Event(ctx, id)
}

// ByToken answers "what did this token become": the event its redemption
// created, or ErrNotFound for a token that was never consumed.
func (s *Events) ByToken(ctx context.Context, code string) (*domain.Event, error) {
	return s.store.EventByToken(ctx, code)
}
