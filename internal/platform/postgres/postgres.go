package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables this service owns if they are missing.
// The (raffle_id, number) unique index is load-bearing: Claim inserts
// against it, and LockAndRead's FOR UPDATE serializes racing claims on
// existing rows.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		hashed_password TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS raffles (
		id UUID PRIMARY KEY,
		short_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		digits_per_number INT NOT NULL,
		numbers_per_ticket INT NOT NULL,
		excluded_numbers TEXT[] NOT NULL DEFAULT '{}',
		price BIGINT NOT NULL DEFAULT 0,
		prize_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		image_url TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_date TIMESTAMPTZ NOT NULL,
		owner_id UUID REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY,
		raffle_id UUID NOT NULL REFERENCES raffles(id),
		user_id UUID REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'pending',
		buyer_name TEXT NOT NULL,
		buyer_phone TEXT NOT NULL,
		payment_type TEXT,
		payment_date TIMESTAMPTZ,
		payment_proof_url TEXT,
		numbers_snapshot TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_raffle ON tickets(raffle_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_payment_date ON tickets(payment_date);

	CREATE TABLE IF NOT EXISTS numbers (
		id BIGSERIAL PRIMARY KEY,
		raffle_id UUID NOT NULL REFERENCES raffles(id),
		ticket_id UUID REFERENCES tickets(id),
		number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		expire_at TIMESTAMPTZ,
		UNIQUE (raffle_id, number)
	);
	CREATE INDEX IF NOT EXISTS idx_numbers_ticket ON numbers(ticket_id);
	CREATE INDEX IF NOT EXISTS idx_numbers_expiry ON numbers(status, expire_at);

	CREATE TABLE IF NOT EXISTS token_revocations (
		jti TEXT PRIMARY KEY,
		expires_at TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
