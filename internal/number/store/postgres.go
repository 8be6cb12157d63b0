package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rifa/internal/number"
	pkgerrors "rifa/pkg/domain-errors"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same store code
// serves reads on the pool and writes inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists the number catalogue in PostgreSQL.
type Postgres struct {
	q querier
}

// NewPostgres constructs a store over the connection pool. Registry methods
// on a pool-backed store run without transactional guarantees, so only the
// Reader side should be used this way; transaction runners construct
// tx-scoped stores via NewPostgresTx.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

// NewPostgresTx constructs a store scoped to one transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

const numberColumns = "id, raffle_id, ticket_id, number, status, expire_at"

func (s *Postgres) LockAndRead(ctx context.Context, raffleID uuid.UUID, values []string) ([]number.Number, error) {
	if len(values) == 0 {
		return nil, nil
	}
	query := `SELECT ` + numberColumns + `
		FROM numbers
		WHERE raffle_id = $1 AND number = ANY($2)
		FOR UPDATE`
	rows, err := s.q.QueryContext(ctx, query, raffleID, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("lock numbers: %w", err)
	}
	defer rows.Close()
	return scanNumbers(rows)
}

// Claim updates locked available rows and inserts rows for untouched
// values. Rows created by another transaction are never overwritten: such
// rows carry a non-available status, so the update skips them, the insert
// hits the unique index and does nothing, and the shortfall surfaces as a
// conflict.
func (s *Postgres) Claim(ctx context.Context, raffleID uuid.UUID, values []string, target number.Status, ticketID uuid.UUID, expireAt *time.Time) error {
	if len(values) == 0 {
		return nil
	}
	updateQuery := `UPDATE numbers SET status = $3, ticket_id = $4, expire_at = $5
		WHERE raffle_id = $1 AND number = ANY($2) AND status = 'available'`
	res, err := s.q.ExecContext(ctx, updateQuery, raffleID, pq.Array(values), string(target), ticketID, nullTime(expireAt))
	if err != nil {
		return fmt.Errorf("claim numbers: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim numbers: %w", err)
	}

	insertQuery := `
		INSERT INTO numbers (raffle_id, number, status, ticket_id, expire_at)
		SELECT $1, unnest($2::text[]), $3, $4, $5
		ON CONFLICT (raffle_id, number) DO NOTHING`
	res, err = s.q.ExecContext(ctx, insertQuery, raffleID, pq.Array(values), string(target), ticketID, nullTime(expireAt))
	if err != nil {
		return fmt.Errorf("claim numbers: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim numbers: %w", err)
	}

	if int(updated+inserted) < len(values) {
		return pkgerrors.New(pkgerrors.CodeConflict, "a requested number is no longer available")
	}
	return nil
}

func (s *Postgres) Release(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE numbers
		SET status = 'available', ticket_id = NULL, expire_at = NULL
		WHERE id = ANY($1)`
	if _, err := s.q.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("release numbers: %w", err)
	}
	return nil
}

func (s *Postgres) Finalize(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE numbers
		SET status = 'assigned', expire_at = NULL
		WHERE id = ANY($1)`
	if _, err := s.q.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("finalize numbers: %w", err)
	}
	return nil
}

func (s *Postgres) SeedExcluded(ctx context.Context, raffleID uuid.UUID, values []string) error {
	if len(values) == 0 {
		return nil
	}
	query := `INSERT INTO numbers (raffle_id, number, status)
		SELECT $1, unnest($2::text[]), 'excluded'`
	if _, err := s.q.ExecContext(ctx, query, raffleID, pq.Array(values)); err != nil {
		return fmt.Errorf("seed excluded numbers: %w", err)
	}
	return nil
}

func (s *Postgres) ResetCatalog(ctx context.Context, raffleID uuid.UUID) error {
	query := `DELETE FROM numbers WHERE raffle_id = $1 AND ticket_id IS NULL`
	if _, err := s.q.ExecContext(ctx, query, raffleID); err != nil {
		return fmt.Errorf("reset number catalogue: %w", err)
	}
	return nil
}

func (s *Postgres) ExpiredReserved(ctx context.Context, now time.Time) ([]number.Number, error) {
	query := `SELECT n.id, n.raffle_id, n.ticket_id, n.number, n.status, n.expire_at
		FROM numbers n
		JOIN tickets t ON t.id = n.ticket_id
		WHERE n.status = 'reserved'
		  AND n.expire_at IS NOT NULL
		  AND n.expire_at < $1
		  AND t.status = 'pending'
		FOR UPDATE OF n`
	rows, err := s.q.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query expired reservations: %w", err)
	}
	defer rows.Close()
	return scanNumbers(rows)
}

func (s *Postgres) Lookup(ctx context.Context, raffleID uuid.UUID, value string) (number.Status, error) {
	var status string
	err := s.q.QueryRowContext(ctx,
		`SELECT status FROM numbers WHERE raffle_id = $1 AND number = $2`,
		raffleID, value,
	).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			// No row means the number was never touched.
			return number.StatusAvailable, nil
		}
		return "", fmt.Errorf("lookup number: %w", err)
	}
	return number.Status(status), nil
}

func (s *Postgres) RandomAvailable(ctx context.Context, raffleID uuid.UUID, digits int, excluded []string, count int) ([]string, error) {
	maxNum := 1
	for i := 0; i < digits; i++ {
		maxNum *= 10
	}
	// Rows in 'available' status are candidates alongside never-touched
	// numbers: a released reservation returns to the sellable pool.
	query := `
		WITH universe AS (
			SELECT lpad(gs::text, $2, '0') AS number
			FROM generate_series(0, $3) gs
		)
		SELECT u.number
		FROM universe u
		LEFT JOIN numbers n ON n.raffle_id = $1 AND n.number = u.number
		WHERE (n.id IS NULL OR n.status = 'available')
		  AND NOT (u.number = ANY($4))
		ORDER BY random()
		LIMIT $5`
	rows, err := s.q.QueryContext(ctx, query, raffleID, digits, maxNum-1, pq.Array(excluded), count)
	if err != nil {
		return nil, fmt.Errorf("query random available numbers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan random number: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanNumbers(rows *sql.Rows) ([]number.Number, error) {
	var out []number.Number
	for rows.Next() {
		var (
			n        number.Number
			ticketID uuid.NullUUID
			expireAt sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.RaffleID, &ticketID, &n.Value, &n.Status, &expireAt); err != nil {
			return nil, fmt.Errorf("scan number: %w", err)
		}
		if ticketID.Valid {
			id := ticketID.UUID
			n.TicketID = &id
		}
		if expireAt.Valid {
			t := expireAt.Time
			n.ExpireAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
