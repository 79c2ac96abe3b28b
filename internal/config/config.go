package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN         string
	MongoURI        string
	RedisAddr       string
	RabbitURL       string
	HTTPAddr        string
	DefaultTokenTTL time.Duration
	SweepInterval   time.Duration
	IdempotencyTTL  time.Duration
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenTTLHours, _ := strconv.Atoi(os.Getenv("TOKEN_TTL_HOURS"))
	if tokenTTLHours == 0 {
		tokenTTLHours = 72
	}

	sweepInterval, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweepInterval == 0 {
		sweepInterval = time.Minute
	}

	idempTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idempTTL == 0 {
		idempTTL = time.Hour
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		CRDBDSN:         os.Getenv("CRDB_DSN"),
		MongoURI:        os.Getenv("MONGO_URI"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		HTTPAddr:        httpAddr,
		DefaultTokenTTL: time.Duration(tokenTTLHours) * time.Hour,
		SweepInterval:   sweepInterval,
		IdempotencyTTL:  idempTTL,
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
