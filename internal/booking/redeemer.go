package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
)

// Redeemer validates tokens at event-creation time and performs
// exactly-once redemption.
type Redeemer struct {
	store    Store
	registry VenueRegistry
	audit    AuditLog
}

func NewRedeemer(store Store, registry VenueRegistry, audit AuditLog) *Redeemer {
	return &Redeemer{store: store, registry: registry, audit: audit}
}

// Verify is read-only. It resolves lazy expiry, refreshes the stored
// status of a stale Active row, and returns the venue snapshot for a live
// token. Dead tokens fail with their specific reason so the client never
// suggests a retry for, say, a revoked token.
func (s *Redeemer) Verify(ctx context.Context, code string) (*domain.BookingToken, *domain.VenueSnapshot, error) {
	tok, err := s.store.TokenByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	effective := domain.ResolveTokenStatus(*tok, time.Now())
	if effective == domain.TokenExpired && tok.Status == domain.TokenActive {
		if _, err := s.store.MarkTokenExpired(ctx, code); err != nil {
			return nil, nil, err
		}
		observability.TokenTransitions.WithLabelValues(string(domain.TokenExpired)).Inc()
		tok.Status = domain.TokenExpired
	}
	if reason := domain.VerifyError(effective); reason != nil {
		return nil, nil, reason
	}

	venue, err := s.registry.Venue(ctx, tok.VenueID)
	if err != nil {
		return nil, nil, err
	}
	snap := venue.Snapshot()
	return tok, &snap, nil
}

// Redeem consumes a live token exactly once and creates the venue-locked
// event in the same transaction. Two callers racing on the same token get
// one success; the loser fails with ErrInvalidTransition.
func (s *Redeemer) Redeem(ctx context.Context, code string, requesterID uuid.UUID, title string) (*domain.Event, error) {
	tok, err := s.store.TokenByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if tok.IssuedToUserID != requesterID {
		return nil, domain.ErrForbidden
	}
	if domain.ResolveTokenStatus(*tok, time.Now()) != domain.TokenActive {
		if tok.Status == domain.TokenActive {
			if _, err := s.store.MarkTokenExpired(ctx, code); err != nil {
				return nil, err
			}
			observability.TokenTransitions.WithLabelValues(string(domain.TokenExpired)).Inc()
		}
		return nil, domain.ErrInvalidTransition
	}

	venue, err := s.registry.Venue(ctx, tok.VenueID)
	if err != nil {
		return nil, err
	}

	tokenCode := code
	ev := domain.Event{
		ID:               uuid.New(),
		OrganizerID:      requesterID,
		Title:            title,
		BookingTokenCode: &tokenCode,
		Venue:            venue.Snapshot(),
		CreatedAt:        time.Now(),
	}
	notice := requestNotice(tok.IssuedToUserID, "token.redeemed", map[string]interface{}{
		"code":     code,
		"event_id": ev.ID,
	})

	ok, err := s.store.ConsumeToken(ctx, code, ev, notice)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.CASConflicts.WithLabelValues("booking_token").Inc()
		return nil, domain.ErrInvalidTransition
	}

	observability.TokenTransitions.WithLabelValues(string(domain.TokenConsumed)).Inc()
	s.record(ctx, "token.redeemed", requesterID, map[string]interface{}{
		"code":     code,
		"event_id": ev.ID,
	})
	return &ev, nil
}

func (s *Redeemer) record(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, action, userID, data)
	}
}
