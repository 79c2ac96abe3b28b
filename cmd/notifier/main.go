package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sportshub/venue-booking/internal/adapters/rabbit"
	"github.com/sportshub/venue-booking/internal/config"
	"github.com/sportshub/venue-booking/internal/observability"
)

// The notifier is the messaging collaborator's doorstep: it drains the
// notification queue and delivers each payload into the recipient's
// conversation thread. Delivery here is structured-log output; swapping in
// a real chat backend only changes deliver().
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "vbk.notify.q", "#")
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	go func() {
		for d := range deliveries {
			deliver(logger, d)
			d.Ack(false)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}

func deliver(logger observability.Logger, d amqp.Delivery) {
	userID, _ := d.Headers["user_id"].(string)

	var payload map[string]interface{}
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		logger.WithField("message_id", d.MessageId).Error("malformed notification payload", err)
		return
	}

	logger.
		WithField("user_id", userID).
		WithField("kind", d.RoutingKey).
		WithField("payload", payload).
		Info("notification delivered")
}
