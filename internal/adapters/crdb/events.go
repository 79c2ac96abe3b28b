package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sportshub/venue-booking/internal/domain"
)

func (r *Repository) CreateEvent(ctx context.Context, ev domain.Event) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return insertEvent(ctx, tx, ev)
	})
}

func insertEvent(ctx context.Context, tx pgx.Tx, ev domain.Event) error {
	var venueID *uuid.UUID
	if ev.Venue.VenueID != uuid.Nil {
		venueID = &ev.Venue.VenueID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO events (
			id, organizer_id, title, booking_token_code, venue_id, venue_name,
			loc_name, loc_address, loc_city, loc_state, loc_country, loc_lat, loc_lng,
			max_capacity, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, ev.ID, ev.OrganizerID, ev.Title, ev.BookingTokenCode, venueID, ev.Venue.Name,
		ev.Venue.Location.Name, ev.Venue.Location.Address, ev.Venue.Location.City,
		ev.Venue.Location.State, ev.Venue.Location.Country, ev.Venue.Location.Lat,
		ev.Venue.Location.Lng, ev.Venue.MaxCapacity, ev.CreatedAt)
	return err
}

func (r *Repository) Event(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var ev domain.Event
	var venueID *uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id, organizer_id, title, booking_token_code, venue_id, venue_name,
		       loc_name, loc_address, loc_city, loc_state, loc_country, loc_lat, loc_lng,
		       max_capacity, created_at
		FROM events WHERE id = $1
	`, id).Scan(&ev.ID, &ev.OrganizerID, &ev.Title, &ev.BookingTokenCode, &venueID, &ev.Venue.Name,
		&ev.Venue.Location.Name, &ev.Venue.Location.Address, &ev.Venue.Location.City,
		&ev.Venue.Location.State, &ev.Venue.Location.Country, &ev.Venue.Location.Lat,
		&ev.Venue.Location.Lng, &ev.Venue.MaxCapacity, &ev.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if venueID != nil {
		ev.Venue.VenueID = *venueID
	}
	return &ev, nil
}

// EventByToken looks up the event created by a token's redemption.
func (r *Repository) EventByToken(ctx context.Context, code string) (*domain.Event, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM events WHERE booking_token_code = $1
	`, code).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Event(ctx, id)
}
