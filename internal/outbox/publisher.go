package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sportshub/venue-booking/internal/adapters/crdb"
	"github.com/sportshub/venue-booking/internal/adapters/rabbit"
	"github.com/sportshub/venue-booking/internal/observability"
)

// Publisher drains the notification outbox into RabbitMQ. Notices are
// written in the same DB transaction as the state change they report;
// this loop gives them at-least-once delivery, deduplicated downstream by
// MessageId.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.UnpublishedNotices(ctx, 100)
	if err != nil {
		p.logger.Error("failed to read outbox", err)
		return
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Headers:     amqp.Table{"user_id": rec.UserID.String()},
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.Kind, msg); err != nil {
			p.logger.WithField("notice_id", rec.ID).Error("failed to publish notice", err)
			continue
		}
		if err := p.repo.MarkNoticePublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.WithField("notice_id", rec.ID).Error("failed to mark notice published", err)
		}
	}

	lag, err := p.repo.OldestUnpublishedAge(ctx, time.Now())
	if err == nil {
		observability.OutboxLag.Set(lag.Seconds())
	}
}
