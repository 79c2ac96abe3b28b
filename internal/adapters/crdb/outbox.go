package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sportshub/venue-booking/internal/domain"
)

type OutboxRecord struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Kind        string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED, FAILED
	DedupeKey   string
}

// RecordNotice inserts a notice outside any entity transaction. Most
// notices ride inside the CAS transactions; this is for standalone sends.
func (r *Repository) RecordNotice(ctx context.Context, n domain.Notice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO outbox (id, user_id, kind, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, 'NEW', $5)
	`, n.ID, n.UserID, n.Kind, n.Payload, n.DedupeKey)
	return err
}

func (r *Repository) UnpublishedNotices(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkNoticePublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}

// OldestUnpublishedAge backs the outbox lag gauge. Zero when the outbox
// is drained.
func (r *Repository) OldestUnpublishedAge(ctx context.Context, now time.Time) (time.Duration, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT 1
	`).Scan(&createdAt)
	if err != nil {
		return 0, nil
	}
	return now.Sub(createdAt), nil
}
