package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rifa/internal/auth"
	pkgerrors "rifa/pkg/domain-errors"
)

// PostgresUsers persists user accounts.
type PostgresUsers struct {
	db *sql.DB
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

func (s *PostgresUsers) Insert(ctx context.Context, u auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, hashed_password, is_active) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.HashedPassword, u.Active,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUsers) GetByUsername(ctx context.Context, username string) (auth.User, error) {
	return s.get(ctx, `SELECT id, username, hashed_password, is_active FROM users WHERE username = $1`, username)
}

func (s *PostgresUsers) GetByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	return s.get(ctx, `SELECT id, username, hashed_password, is_active FROM users WHERE id = $1`, id)
}

func (s *PostgresUsers) get(ctx context.Context, query string, arg any) (auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.HashedPassword, &u.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return auth.User{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return auth.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// PostgresRevocations keeps revoked token ids in the database. It backs
// deployments without Redis; entries past expiry are ignored and cleaned
// opportunistically on writes.
type PostgresRevocations struct {
	db *sql.DB
}

func NewPostgresRevocations(db *sql.DB) *PostgresRevocations {
	return &PostgresRevocations{db: db}
}

func (s *PostgresRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO token_revocations (jti, expires_at) VALUES ($1, $2)
		 ON CONFLICT (jti) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		jti, time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at < NOW()`)
	return nil
}

func (s *PostgresRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_revocations WHERE jti = $1 AND expires_at > NOW())`,
		jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}
