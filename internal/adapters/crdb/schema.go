package crdb

import "context"

// Schema is the DDL for the pipeline's transactional entities. The unique
// keys carry the contract: one token per code, one token per booking
// request, one intent per idempotency key.
const Schema = `
CREATE TABLE IF NOT EXISTS booking_requests (
	id UUID PRIMARY KEY,
	venue_id UUID NOT NULL,
	requester_id UUID NOT NULL,
	owner_id UUID NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'TOKEN_GENERATED', 'CANCELLED')),
	conversation_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	INDEX (requester_id),
	INDEX (owner_id)
);

CREATE TABLE IF NOT EXISTS payment_intents (
	idempotency_key TEXT PRIMARY KEY,
	booking_request_id UUID NOT NULL,
	amount INT8 NOT NULL,
	currency TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('INITIATED', 'SUCCEEDED', 'FAILED')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finalized_at TIMESTAMPTZ,
	INDEX (booking_request_id)
);

CREATE TABLE IF NOT EXISTS booking_tokens (
	code TEXT PRIMARY KEY,
	booking_request_id UUID NOT NULL UNIQUE,
	venue_id UUID NOT NULL,
	issued_to UUID NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'EXPIRED', 'REVOKED', 'CONSUMED')),
	expires_at TIMESTAMPTZ NOT NULL,
	extension_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id UUID PRIMARY KEY,
	organizer_id UUID NOT NULL,
	title TEXT NOT NULL,
	booking_token_code TEXT,
	venue_id UUID,
	venue_name TEXT NOT NULL DEFAULT '',
	loc_name TEXT NOT NULL DEFAULT '',
	loc_address TEXT NOT NULL DEFAULT '',
	loc_city TEXT NOT NULL DEFAULT '',
	loc_state TEXT NOT NULL DEFAULT '',
	loc_country TEXT NOT NULL DEFAULT '',
	loc_lat FLOAT8 NOT NULL DEFAULT 0,
	loc_lng FLOAT8 NOT NULL DEFAULT 0,
	max_capacity INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	INDEX (booking_token_code)
);

CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	kind TEXT NOT NULL,
	payload_json BYTES NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);
`

// Migrate applies the schema. Idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}
