package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
)

// Issuer mints, extends, revokes and lazily expires booking tokens.
type Issuer struct {
	store Store
	audit AuditLog
}

func NewIssuer(store Store, audit AuditLog) *Issuer {
	return &Issuer{store: store, audit: audit}
}

// Generate mints the single token for an approved, paid booking request.
// It is safe to call twice: whichever caller loses the Approved →
// TokenGenerated swap receives the winner's token, so "generate" never
// errors when the semantic outcome — a token exists — is unchanged.
func (s *Issuer) Generate(ctx context.Context, requestID, callerID uuid.UUID, ttl time.Duration) (*domain.BookingToken, error) {
	req, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}

	switch req.Status {
	case domain.RequestTokenGenerated:
		return s.store.TokenByRequest(ctx, requestID)
	case domain.RequestApproved:
	default:
		return nil, domain.ErrInvalidTransition
	}

	status, err := s.paymentStatus(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if status != domain.PaymentSucceeded {
		return nil, domain.ErrPaymentRequired
	}

	tok := domain.NewBookingToken(*req, ttl, time.Now())
	notice := requestNotice(req.RequesterID, "token.generated", map[string]interface{}{
		"request_id": requestID,
		"code":       tok.Code,
		"expires_at": tok.ExpiresAt,
	})
	err = s.store.IssueToken(ctx, tok, notice)
	if errors.Is(err, domain.ErrAlreadyTokenized) {
		observability.CASConflicts.WithLabelValues("booking_token").Inc()
		return s.store.TokenByRequest(ctx, requestID)
	}
	if err != nil {
		return nil, err
	}

	observability.TokensIssued.Inc()
	s.record(ctx, "token.generated", callerID, map[string]interface{}{
		"request_id": requestID,
		"code":       tok.Code,
	})
	return &tok, nil
}

// Extend pushes a live token's expiry forward: expiresAt becomes
// max(expiresAt, now) + extra. A dead token is never resurrected.
func (s *Issuer) Extend(ctx context.Context, code string, callerID uuid.UUID, extra time.Duration) (*domain.BookingToken, error) {
	tok, err := s.authorize(ctx, code, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.settleExpiry(ctx, tok); err != nil {
		return nil, err
	}

	updated, ok, err := s.store.ExtendToken(ctx, code, extra)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.CASConflicts.WithLabelValues("booking_token").Inc()
		return nil, domain.ErrInvalidTransition
	}

	s.record(ctx, "token.extended", callerID, map[string]interface{}{
		"code":       code,
		"expires_at": updated.ExpiresAt,
	})
	return updated, nil
}

// Revoke kills a live token. Irreversible.
func (s *Issuer) Revoke(ctx context.Context, code string, callerID uuid.UUID) (*domain.BookingToken, error) {
	tok, err := s.authorize(ctx, code, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.settleExpiry(ctx, tok); err != nil {
		return nil, err
	}

	notice := requestNotice(tok.IssuedToUserID, "token.revoked", map[string]interface{}{
		"code": code,
	})
	ok, err := s.store.RevokeToken(ctx, code, notice)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.CASConflicts.WithLabelValues("booking_token").Inc()
		return nil, domain.ErrInvalidTransition
	}

	observability.TokenTransitions.WithLabelValues(string(domain.TokenRevoked)).Inc()
	tok.Status = domain.TokenRevoked
	s.record(ctx, "token.revoked", callerID, map[string]interface{}{"code": code})
	return tok, nil
}

func (s *Issuer) authorize(ctx context.Context, code string, callerID uuid.UUID) (*domain.BookingToken, error) {
	tok, err := s.store.TokenByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	// Ownership is pinned to the request's denormalized ownerId, so a
	// later venue transfer cannot shift authorization.
	req, err := s.store.Request(ctx, tok.BookingRequestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != callerID {
		return nil, domain.ErrForbidden
	}
	return tok, nil
}

// settleExpiry refreshes the stored status of a lazily-expired token
// before any state change, so readers and writers agree about liveness.
func (s *Issuer) settleExpiry(ctx context.Context, tok *domain.BookingToken) error {
	if domain.ResolveTokenStatus(*tok, time.Now()) != domain.TokenExpired || tok.Status != domain.TokenActive {
		return nil
	}
	if _, err := s.store.MarkTokenExpired(ctx, tok.Code); err != nil {
		return err
	}
	observability.TokenTransitions.WithLabelValues(string(domain.TokenExpired)).Inc()
	return domain.ErrInvalidTransition
}

func (s *Issuer) paymentStatus(ctx context.Context, requestID uuid.UUID) (domain.PaymentStatus, error) {
	intent, err := s.store.IntentByRequest(ctx, requestID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return intent.Status, nil
}

func (s *Issuer) record(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, action, userID, data)
	}
}
