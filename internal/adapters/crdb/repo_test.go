package crdb_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sportshub/venue-booking/internal/adapters/crdb"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRepo(t *testing.T) *crdb.Repository {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/vbk?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, "CREATE DATABASE IF NOT EXISTS vbk"); err != nil {
		t.Fatal(err)
	}

	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func seedRequest(t *testing.T, repo *crdb.Repository, status domain.RequestStatus) domain.BookingRequest {
	t.Helper()
	ctx := context.Background()
	venue := domain.Venue{ID: uuid.New(), OwnerID: uuid.New(), Status: domain.VenueAvailable}
	req := domain.NewBookingRequest(venue, uuid.New(), time.Now())
	req.Status = status
	if err := repo.CreateRequest(ctx, req); err != nil {
		t.Fatal(err)
	}
	return req
}

func notice(userID uuid.UUID, kind string) domain.Notice {
	return domain.Notice{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Payload:   []byte(`{}`),
		DedupeKey: uuid.NewString(),
	}
}

func TestRepository_CASRequestStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	repo := startRepo(t)
	req := seedRequest(t, repo, domain.RequestPending)

	n := notice(req.RequesterID, "request.decided")
	ok, err := repo.CASRequestStatus(ctx, req.ID, domain.RequestPending, domain.RequestApproved, &n)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the first swap to win")
	}

	// The same swap again must lose: the row is no longer Pending.
	n2 := notice(req.RequesterID, "request.decided")
	ok, err = repo.CASRequestStatus(ctx, req.ID, domain.RequestPending, domain.RequestRejected, &n2)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected the second swap to lose")
	}

	stored, err := repo.Request(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.RequestApproved {
		t.Errorf("expected Approved, got %s", stored.Status)
	}
}

func TestRepository_CreateIntentIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	repo := startRepo(t)
	req := seedRequest(t, repo, domain.RequestApproved)

	key := domain.IdempotencyKeyFor(req.ID)
	first := domain.NewPaymentIntent(key, req.ID, 2500, "KES", time.Now())
	stored, created, err := repo.CreateIntent(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if !created || stored.Amount != 2500 {
		t.Fatalf("expected fresh intent, created=%v amount=%d", created, stored.Amount)
	}

	retry := domain.NewPaymentIntent(key, req.ID, 9999, "USD", time.Now())
	stored, created, err = repo.CreateIntent(ctx, retry)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("retry must not create a second intent")
	}
	if stored.Amount != 2500 || stored.Currency != "KES" {
		t.Errorf("retry leaked new parameters: %d %s", stored.Amount, stored.Currency)
	}

	n := notice(req.RequesterID, "payment.finalized")
	intent, finalized, err := repo.FinalizeIntent(ctx, key, domain.PaymentSucceeded, &n)
	if err != nil {
		t.Fatal(err)
	}
	if !finalized || intent.Status != domain.PaymentSucceeded {
		t.Fatalf("expected finalized Succeeded, got finalized=%v status=%s", finalized, intent.Status)
	}

	// Replayed callback: stored result wins.
	n2 := notice(req.RequesterID, "payment.finalized")
	intent, finalized, err = repo.FinalizeIntent(ctx, key, domain.PaymentFailed, &n2)
	if err != nil {
		t.Fatal(err)
	}
	if finalized || intent.Status != domain.PaymentSucceeded {
		t.Errorf("replay touched the terminal status: finalized=%v status=%s", finalized, intent.Status)
	}
}

func TestRepository_IssueTokenOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	repo := startRepo(t)
	req := seedRequest(t, repo, domain.RequestApproved)

	tok := domain.NewBookingToken(req, 72*time.Hour, time.Now())
	if err := repo.IssueToken(ctx, tok, notice(req.RequesterID, "token.generated")); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	second := domain.NewBookingToken(req, 72*time.Hour, time.Now())
	err := repo.IssueToken(ctx, second, notice(req.RequesterID, "token.generated"))
	if !errors.Is(err, domain.ErrAlreadyTokenized) {
		t.Fatalf("expected ErrAlreadyTokenized, got %v", err)
	}

	stored, err := repo.TokenByRequest(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Code != tok.Code {
		t.Errorf("expected the first token %s, got %s", tok.Code, stored.Code)
	}

	reqRow, err := repo.Request(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reqRow.Status != domain.RequestTokenGenerated {
		t.Errorf("expected TokenGenerated, got %s", reqRow.Status)
	}
}

func TestRepository_ConsumeTokenOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	repo := startRepo(t)
	req := seedRequest(t, repo, domain.RequestApproved)

	tok := domain.NewBookingToken(req, 72*time.Hour, time.Now())
	if err := repo.IssueToken(ctx, tok, notice(req.RequesterID, "token.generated")); err != nil {
		t.Fatal(err)
	}

	code := tok.Code
	ev := domain.Event{
		ID:               uuid.New(),
		OrganizerID:      req.RequesterID,
		Title:            "league final",
		BookingTokenCode: &code,
		Venue:            domain.VenueSnapshot{VenueID: tok.VenueID, Name: "Arena", MaxCapacity: 800},
		CreatedAt:        time.Now(),
	}
	ok, err := repo.ConsumeToken(ctx, code, ev, notice(req.RequesterID, "token.redeemed"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected the first consume to win")
	}

	ok, err = repo.ConsumeToken(ctx, code, ev, notice(req.RequesterID, "token.redeemed"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected the second consume to lose")
	}

	stored, err := repo.TokenByCode(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.TokenConsumed {
		t.Errorf("expected Consumed, got %s", stored.Status)
	}
}

func TestRepository_DeadTokenStaysDead(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()
	repo := startRepo(t)
	req := seedRequest(t, repo, domain.RequestApproved)

	// Already past its expiry at insert time.
	tok := domain.NewBookingToken(req, -time.Hour, time.Now())
	if err := repo.IssueToken(ctx, tok, notice(req.RequesterID, "token.generated")); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := repo.ExtendToken(ctx, tok.Code, 48*time.Hour); err != nil || ok {
		t.Errorf("extend on an expired token must not apply: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.RevokeToken(ctx, tok.Code, notice(req.RequesterID, "token.revoked")); err != nil || ok {
		t.Errorf("revoke on an expired token must not apply: ok=%v err=%v", ok, err)
	}

	flipped, err := repo.MarkTokenExpired(ctx, tok.Code)
	if err != nil {
		t.Fatal(err)
	}
	if !flipped {
		t.Error("expected the stale Active row to settle to Expired")
	}

	stale, err := repo.StaleActiveTokens(ctx, time.Now(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 0 {
		t.Errorf("settled token still reported stale: %d rows", len(stale))
	}
}
