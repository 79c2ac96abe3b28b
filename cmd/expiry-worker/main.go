package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sportshub/venue-booking/internal/adapters/crdb"
	"github.com/sportshub/venue-booking/internal/config"
	"github.com/sportshub/venue-booking/internal/domain"
	"github.com/sportshub/venue-booking/internal/observability"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	worker := NewSweeper(repo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go worker.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown expiry worker")
}

// Sweeper flips stale Active tokens to Expired in storage. This is purely
// a query-efficiency measure: readers and writers resolve expiry lazily
// and never depend on the sweep having run.
type Sweeper struct {
	repo   *crdb.Repository
	logger observability.Logger
}

func NewSweeper(repo *crdb.Repository, logger observability.Logger) *Sweeper {
	return &Sweeper{repo: repo, logger: logger}
}

func (w *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tokens, err := w.repo.StaleActiveTokens(ctx, now, 100)
			if err != nil {
				w.logger.Error("failed to list stale tokens", err)
				continue
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(8)
			for _, tok := range tokens {
				tok := tok
				g.Go(func() error {
					if err := w.sweepWithRetry(gctx, tok); err != nil {
						w.logger.WithField("code", tok.Code).Error("failed to sweep token", err)
					}
					return nil
				})
			}
			g.Wait()
		}
	}
}

func (w *Sweeper) sweepWithRetry(ctx context.Context, tok domain.BookingToken) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		flipped, err := w.repo.MarkTokenExpired(ctx, tok.Code)
		if err != nil {
			lastErr = err
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		if !flipped {
			// Another writer settled this token first.
			return nil
		}

		observability.TokenTransitions.WithLabelValues(string(domain.TokenExpired)).Inc()
		payload, _ := json.Marshal(map[string]interface{}{"code": tok.Code})
		// The holder hears about expiry through the same outbox as every
		// other lifecycle notification. The dedupe key is deterministic so
		// a retried sweep cannot fan out duplicates.
		return w.repo.RecordNotice(ctx, domain.Notice{
			ID:        uuid.New(),
			UserID:    tok.IssuedToUserID,
			Kind:      "token.expired",
			Payload:   payload,
			DedupeKey: "token.expired:" + tok.Code,
		})
	}
	return lastErr
}
