package crdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sportshub/venue-booking/internal/domain"
)

// IssueToken swaps the request from Approved to TokenGenerated and inserts
// the token and its notification in the same transaction, so a
// TokenGenerated request always has its token. The loser of two racing
// issuers gets domain.ErrAlreadyTokenized and can hand back the winner's
// token.
func (r *Repository) IssueToken(ctx context.Context, tok domain.BookingToken, notice domain.Notice) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE booking_requests SET status = $2 WHERE id = $1 AND status = $3
		`, tok.BookingRequestID, domain.RequestTokenGenerated, domain.RequestApproved)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			var status domain.RequestStatus
			err := tx.QueryRow(ctx, `
				SELECT status FROM booking_requests WHERE id = $1
			`, tok.BookingRequestID).Scan(&status)
			if err == pgx.ErrNoRows {
				return domain.ErrNotFound
			}
			if err != nil {
				return err
			}
			if status == domain.RequestTokenGenerated {
				return domain.ErrAlreadyTokenized
			}
			return domain.ErrInvalidTransition
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO booking_tokens (code, booking_request_id, venue_id, issued_to, status, expires_at, extension_count, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, tok.Code, tok.BookingRequestID, tok.VenueID, tok.IssuedToUserID, tok.Status, tok.ExpiresAt, tok.ExtensionCount, tok.CreatedAt)
		if err != nil {
			return err
		}
		return insertNotice(ctx, tx, notice)
	})
}

func (r *Repository) TokenByCode(ctx context.Context, code string) (*domain.BookingToken, error) {
	return scanToken(r.pool.QueryRow(ctx, `
		SELECT code, booking_request_id, venue_id, issued_to, status, expires_at, extension_count, created_at
		FROM booking_tokens WHERE code = $1
	`, code))
}

func (r *Repository) TokenByRequest(ctx context.Context, requestID uuid.UUID) (*domain.BookingToken, error) {
	return scanToken(r.pool.QueryRow(ctx, `
		SELECT code, booking_request_id, venue_id, issued_to, status, expires_at, extension_count, created_at
		FROM booking_tokens WHERE booking_request_id = $1
	`, requestID))
}

// MarkTokenExpired settles lazy expiry in storage: only a stored Active
// row whose expiry has passed is flipped.
func (r *Repository) MarkTokenExpired(ctx context.Context, code string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE booking_tokens SET status = $2
		WHERE code = $1 AND status = $3 AND expires_at <= now()
	`, code, domain.TokenExpired, domain.TokenActive)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *Repository) ExtendToken(ctx context.Context, code string, extra time.Duration) (*domain.BookingToken, bool, error) {
	tok, err := scanToken(r.pool.QueryRow(ctx, `
		UPDATE booking_tokens
		SET expires_at = GREATEST(expires_at, now()) + $2 * interval '1 second',
		    extension_count = extension_count + 1
		WHERE code = $1 AND status = $3 AND expires_at > now()
		RETURNING code, booking_request_id, venue_id, issued_to, status, expires_at, extension_count, created_at
	`, code, int64(extra.Seconds()), domain.TokenActive))
	if err == domain.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return tok, true, nil
}

func (r *Repository) RevokeToken(ctx context.Context, code string, notice domain.Notice) (bool, error) {
	var ok bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE booking_tokens SET status = $2
			WHERE code = $1 AND status = $3 AND expires_at > now()
		`, code, domain.TokenRevoked, domain.TokenActive)
		if err != nil {
			return err
		}
		ok = result.RowsAffected() > 0
		if ok {
			return insertNotice(ctx, tx, notice)
		}
		return nil
	})
	return ok, err
}

// ConsumeToken is the exactly-once redemption step: the Active→Consumed
// swap, the venue-locked event row and the notification commit together
// or not at all.
func (r *Repository) ConsumeToken(ctx context.Context, code string, ev domain.Event, notice domain.Notice) (bool, error) {
	var ok bool
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE booking_tokens SET status = $2
			WHERE code = $1 AND status = $3 AND expires_at > now()
		`, code, domain.TokenConsumed, domain.TokenActive)
		if err != nil {
			return err
		}
		ok = result.RowsAffected() > 0
		if !ok {
			return nil
		}
		if err := insertEvent(ctx, tx, ev); err != nil {
			return err
		}
		return insertNotice(ctx, tx, notice)
	})
	return ok, err
}

func (r *Repository) StaleActiveTokens(ctx context.Context, now time.Time, limit int) ([]domain.BookingToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, booking_request_id, venue_id, issued_to, status, expires_at, extension_count, created_at
		FROM booking_tokens WHERE status = $1 AND expires_at <= $2 LIMIT $3
	`, domain.TokenActive, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var toks []domain.BookingToken
	for rows.Next() {
		var tok domain.BookingToken
		if err := rows.Scan(&tok.Code, &tok.BookingRequestID, &tok.VenueID, &tok.IssuedToUserID, &tok.Status, &tok.ExpiresAt, &tok.ExtensionCount, &tok.CreatedAt); err != nil {
			return nil, err
		}
		toks = append(toks, tok)
	}
	return toks, rows.Err()
}

func scanToken(row pgx.Row) (*domain.BookingToken, error) {
	var tok domain.BookingToken
	err := row.Scan(&tok.Code, &tok.BookingRequestID, &tok.VenueID, &tok.IssuedToUserID, &tok.Status, &tok.ExpiresAt, &tok.ExtensionCount, &tok.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
