package booking_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
)

// memStore is a mutex-guarded in-memory implementation of booking.Store
// with the same CAS contract as the SQL repository. It lets the service
// race tests run thousands of contended transitions without a database.
type memStore struct {
	mu         sync.Mutex
	requests   map[uuid.UUID]domain.BookingRequest
	intents    map[string]domain.PaymentIntent
	tokens     map[string]domain.BookingToken
	tokenByReq map[uuid.UUID]string
	events     []domain.Event
	notices    []domain.Notice
}

func newMemStore() *memStore {
	return &memStore{
		requests:   make(map[uuid.UUID]domain.BookingRequest),
		intents:    make(map[string]domain.PaymentIntent),
		tokens:     make(map[string]domain.BookingToken),
		tokenByReq: make(map[uuid.UUID]string),
	}
}

func (s *memStore) CreateRequest(ctx context.Context, r domain.BookingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *memStore) Request(ctx context.Context, id uuid.UUID) (*domain.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (s *memStore) RequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BookingRequest
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *memStore) RequestsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BookingRequest
	for _, req := range s.requests {
		if req.OwnerID == ownerID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (s *memStore) CASRequestStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notice *domain.Notice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	s.requests[id] = req
	if notice != nil {
		s.notices = append(s.notices, *notice)
	}
	return true, nil
}

func (s *memStore) CreateIntent(ctx context.Context, intent domain.PaymentIntent) (*domain.PaymentIntent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.intents[intent.IdempotencyKey]; ok {
		return &existing, false, nil
	}
	s.intents[intent.IdempotencyKey] = intent
	return &intent, true, nil
}

func (s *memStore) FinalizeIntent(ctx context.Context, key string, to domain.PaymentStatus, notice *domain.Notice) (*domain.PaymentIntent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[key]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if intent.Status != domain.PaymentInitiated {
		return &intent, false, nil
	}
	now := time.Now()
	intent.Status = to
	intent.FinalizedAt = &now
	s.intents[key] = intent
	if notice != nil {
		s.notices = append(s.notices, *notice)
	}
	return &intent, true, nil
}

func (s *memStore) IntentByKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	intent, ok := s.intents[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &intent, nil
}

func (s *memStore) IntentByRequest(ctx context.Context, requestID uuid.UUID) (*domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, intent := range s.intents {
		if intent.BookingRequestID == requestID {
			out := intent
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) IssueToken(ctx context.Context, tok domain.BookingToken, notice domain.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[tok.BookingRequestID]
	if !ok {
		return domain.ErrNotFound
	}
	switch req.Status {
	case domain.RequestApproved:
	case domain.RequestTokenGenerated:
		return domain.ErrAlreadyTokenized
	default:
		return domain.ErrInvalidTransition
	}
	req.Status = domain.RequestTokenGenerated
	s.requests[req.ID] = req
	s.tokens[tok.Code] = tok
	s.tokenByReq[tok.BookingRequestID] = tok.Code
	s.notices = append(s.notices, notice)
	return nil
}

func (s *memStore) TokenByCode(ctx context.Context, code string) (*domain.BookingToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tok, nil
}

func (s *memStore) TokenByRequest(ctx context.Context, requestID uuid.UUID) (*domain.BookingToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.tokenByReq[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	tok := s.tokens[code]
	return &tok, nil
}

func (s *memStore) MarkTokenExpired(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[code]
	if !ok || tok.Status != domain.TokenActive || tok.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	tok.Status = domain.TokenExpired
	s.tokens[code] = tok
	return true, nil
}

func (s *memStore) ExtendToken(ctx context.Context, code string, extra time.Duration) (*domain.BookingToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	tok, ok := s.tokens[code]
	if !ok || tok.Status != domain.TokenActive || !tok.ExpiresAt.After(now) {
		return nil, false, nil
	}
	base := tok.ExpiresAt
	if base.Before(now) {
		base = now
	}
	tok.ExpiresAt = base.Add(extra)
	tok.ExtensionCount++
	s.tokens[code] = tok
	return &tok, true, nil
}

func (s *memStore) RevokeToken(ctx context.Context, code string, notice domain.Notice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[code]
	if !ok || tok.Status != domain.TokenActive || !tok.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	tok.Status = domain.TokenRevoked
	s.tokens[code] = tok
	s.notices = append(s.notices, notice)
	return true, nil
}

func (s *memStore) ConsumeToken(ctx context.Context, code string, ev domain.Event, notice domain.Notice) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[code]
	if !ok || tok.Status != domain.TokenActive || !tok.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	tok.Status = domain.TokenConsumed
	s.tokens[code] = tok
	s.events = append(s.events, ev)
	s.notices = append(s.notices, notice)
	return true, nil
}

func (s *memStore) CreateEvent(ctx context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memStore) Event(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ID == id {
			out := ev
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) EventByToken(ctx context.Context, code string) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.BookingTokenCode != nil && *ev.BookingTokenCode == code {
			out := ev
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) StaleActiveTokens(ctx context.Context, now time.Time, limit int) ([]domain.BookingToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BookingToken
	for _, tok := range s.tokens {
		if tok.Status == domain.TokenActive && !tok.ExpiresAt.After(now) {
			out = append(out, tok)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memStore) noticeKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (s *memStore) putToken(tok domain.BookingToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.Code] = tok
	s.tokenByReq[tok.BookingRequestID] = tok.Code
}

// memRegistry is a fixed venue lookup.
type memRegistry struct {
	mu     sync.Mutex
	venues map[uuid.UUID]domain.Venue
}

func newMemRegistry(venues ...domain.Venue) *memRegistry {
	r := &memRegistry{venues: make(map[uuid.UUID]domain.Venue)}
	for _, v := range venues {
		r.venues[v.ID] = v
	}
	return r
}

func (r *memRegistry) Venue(ctx context.Context, id uuid.UUID) (*domain.Venue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (r *memRegistry) put(v domain.Venue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues[v.ID] = v
}
