package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sportshub/venue-booking/internal/domain"
)

func (r *Repository) CreateRequest(ctx context.Context, req domain.BookingRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO booking_requests (id, venue_id, requester_id, owner_id, status, conversation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, req.VenueID, req.RequesterID, req.OwnerID, req.Status, req.ConversationID, req.CreatedAt)
	return err
}

func (r *Repository) Request(ctx context.Context, id uuid.UUID) (*domain.BookingRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `
		SELECT id, venue_id, requester_id, owner_id, status, conversation_id, created_at
		FROM booking_requests WHERE id = $1
	`, id))
}

func (r *Repository) RequestsByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.BookingRequest, error) {
	return r.listRequests(ctx, "requester_id", requesterID)
}

func (r *Repository) RequestsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.BookingRequest, error) {
	return r.listRequests(ctx, "owner_id", ownerID)
}

func (r *Repository) listRequests(ctx context.Context, column string, userID uuid.UUID) ([]domain.BookingRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, venue_id, requester_id, owner_id, status, conversation_id, created_at
		FROM booking_requests WHERE `+column+` = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []domain.BookingRequest
	for rows.Next() {
		var req domain.BookingRequest
		if err := rows.Scan(&req.ID, &req.VenueID, &req.RequesterID, &req.OwnerID, &req.Status, &req.ConversationID, &req.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// CASRequestStatus commits the transition only if the row is still in
// from. The loser of a race sees ok=false and the winner's state on
// re-read.
func (r *Repository) CASRequestStatus(ctx context.Context, id uuid.UUID, from, to domain.RequestStatus, notice *domain.Notice) (bool, error) {
	var ok bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE booking_requests SET status = $3 WHERE id = $1 AND status = $2
		`, id, from, to)
		if err != nil {
			return err
		}
		ok = result.RowsAffected() > 0
		if ok && notice != nil {
			return insertNotice(ctx, tx, *notice)
		}
		return nil
	})
	return ok, err
}

func scanRequest(row pgx.Row) (*domain.BookingRequest, error) {
	var req domain.BookingRequest
	err := row.Scan(&req.ID, &req.VenueID, &req.RequesterID, &req.OwnerID, &req.Status, &req.ConversationID, &req.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
