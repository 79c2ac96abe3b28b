package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/sportshub/venue-booking/internal/adapters/crdb"
	mongoadapter "github.com/sportshub/venue-booking/internal/adapters/mongo"
	redisadapter "github.com/sportshub/venue-booking/internal/adapters/redis"
	"github.com/sportshub/venue-booking/internal/booking"
	"github.com/sportshub/venue-booking/internal/config"
	httphandler "github.com/sportshub/venue-booking/internal/http"
	"github.com/sportshub/venue-booking/internal/idempotency"
	"github.com/sportshub/venue-booking/internal/observability"
	"github.com/sportshub/venue-booking/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("vbk")
	venues := mongoadapter.NewVenueRegistry(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)
	cachedVenues := redisadapter.NewCachedVenueRegistry(redisCache, venues, time.Minute)

	// The API does not publish to RabbitMQ directly: every notification
	// rides the outbox and is relayed by the outbox-publisher process.
	// The dial here is a readiness check against broker misconfiguration.
	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()

	requests := booking.NewRequests(repo, venues, audit)
	ledger := booking.NewLedger(repo, audit)
	issuer := booking.NewIssuer(repo, audit)
	redeemer := booking.NewRedeemer(repo, cachedVenues, audit)
	events := booking.NewEvents(repo, redeemer)

	handlers := httphandler.NewHandlers(cfg, requests, ledger, issuer, redeemer, events, venues, idemp)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
