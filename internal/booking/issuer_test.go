package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/booking"
	"github.com/sportshub/venue-booking/internal/domain"
)

func TestIssuerGenerate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	requester := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, requester)
	issuer := booking.NewIssuer(store, nil)

	tok, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if tok.Status != domain.TokenActive {
		t.Errorf("expected Active, got %s", tok.Status)
	}
	if tok.IssuedToUserID != requester {
		t.Errorf("token must be issued to the requester")
	}
	if len(tok.Code) != domain.CodeLength {
		t.Errorf("expected %d-char code, got %d", domain.CodeLength, len(tok.Code))
	}

	stored, err := store.Request(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.RequestTokenGenerated {
		t.Errorf("expected TokenGenerated, got %s", stored.Status)
	}

	var notified bool
	for _, kind := range store.noticeKinds() {
		if kind == "token.generated" {
			notified = true
		}
	}
	if !notified {
		t.Error("issuance must enqueue a token.generated notification")
	}
}

func TestIssuerGenerateIdempotentRetry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, uuid.New())
	issuer := booking.NewIssuer(store, nil)

	first, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	second, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
	if err != nil {
		t.Fatalf("retry after success must not error: %v", err)
	}
	if second.Code != first.Code {
		t.Errorf("retry minted a second token: %s vs %s", second.Code, first.Code)
	}
}

func TestIssuerGenerateRace(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, uuid.New())
	issuer := booking.NewIssuer(store, nil)

	const callers = 16
	var wg sync.WaitGroup
	codes := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
			if err != nil {
				t.Errorf("concurrent generate failed: %v", err)
				return
			}
			codes <- tok.Code
		}()
	}
	wg.Wait()
	close(codes)

	// Exactly one token exists; every caller saw the same code.
	var first string
	for code := range codes {
		if first == "" {
			first = code
		} else if code != first {
			t.Fatalf("two distinct tokens minted: %s and %s", first, code)
		}
	}
	if first == "" {
		t.Fatal("no caller received a token")
	}
}

func TestIssuerGenerateGuards(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	issuer := booking.NewIssuer(store, nil)

	// Approved but unpaid.
	unpaid := domain.NewBookingRequest(venue, uuid.New(), time.Now())
	if err := store.CreateRequest(ctx, unpaid); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CASRequestStatus(ctx, unpaid.ID, domain.RequestPending, domain.RequestApproved, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Generate(ctx, unpaid.ID, owner, time.Hour); !errors.Is(err, domain.ErrPaymentRequired) {
		t.Errorf("unpaid request: expected ErrPaymentRequired, got %v", err)
	}

	// Still pending.
	pending := domain.NewBookingRequest(venue, uuid.New(), time.Now())
	if err := store.CreateRequest(ctx, pending); err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Generate(ctx, pending.ID, owner, time.Hour); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("pending request: expected ErrInvalidTransition, got %v", err)
	}

	// Paid but caller is not the owner.
	paid := approvedPaidRequest(t, store, venue, uuid.New())
	if _, err := issuer.Generate(ctx, paid.ID, uuid.New(), time.Hour); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner: expected ErrForbidden, got %v", err)
	}

	if _, err := issuer.Generate(ctx, uuid.New(), owner, time.Hour); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown request: expected ErrNotFound, got %v", err)
	}
}

func TestIssuerExtend(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, uuid.New())
	issuer := booking.NewIssuer(store, nil)

	tok, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	extended, err := issuer.Extend(ctx, tok.Code, owner, 24*time.Hour)
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	want := tok.ExpiresAt.Add(24 * time.Hour)
	if !extended.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, extended.ExpiresAt)
	}
	if extended.ExtensionCount != 1 {
		t.Errorf("expected extension count 1, got %d", extended.ExtensionCount)
	}

	if _, err := issuer.Extend(ctx, tok.Code, uuid.New(), time.Hour); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner extend: expected ErrForbidden, got %v", err)
	}
	if _, err := issuer.Extend(ctx, "no-such-code", owner, time.Hour); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown code: expected ErrNotFound, got %v", err)
	}
}

func TestIssuerExtendLazilyExpired(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, uuid.New())
	issuer := booking.NewIssuer(store, nil)

	// A token still stored as Active whose expiry passed an hour ago.
	tok := domain.NewBookingToken(req, -time.Hour, time.Now())
	store.putToken(tok)

	if _, err := issuer.Extend(ctx, tok.Code, owner, 48*time.Hour); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// The attempt settled the stored status; the token never went back
	// to Active.
	stored, err := store.TokenByCode(ctx, tok.Code)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.TokenExpired {
		t.Errorf("expected stored status Expired, got %s", stored.Status)
	}
}

func TestIssuerRevoke(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := uuid.New()
	venue := testVenue(owner, domain.VenueAvailable)
	req := approvedPaidRequest(t, store, venue, uuid.New())
	issuer := booking.NewIssuer(store, nil)

	tok, err := issuer.Generate(ctx, req.ID, owner, 72*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	revoked, err := issuer.Revoke(ctx, tok.Code, owner)
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if revoked.Status != domain.TokenRevoked {
		t.Errorf("expected Revoked, got %s", revoked.Status)
	}

	// Revocation is irreversible: the dead token cannot be extended or
	// revoked again.
	if _, err := issuer.Extend(ctx, tok.Code, owner, time.Hour); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("extend after revoke: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := issuer.Revoke(ctx, tok.Code, owner); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("repeat revoke: expected ErrInvalidTransition, got %v", err)
	}
}
