package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rifa/internal/raffle"
	pkgerrors "rifa/pkg/domain-errors"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists raffles in PostgreSQL.
type Postgres struct {
	q querier
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

const raffleColumns = `id, short_id, name, description, digits_per_number, numbers_per_ticket,
	excluded_numbers, price, prize_cost, status, image_url, start_date, end_date, owner_id`

func (s *Postgres) Insert(ctx context.Context, r raffle.Raffle) error {
	query := `INSERT INTO raffles (` + raffleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := s.q.ExecContext(ctx, query,
		r.ID, r.ShortID, r.Name, r.Description, r.DigitsPerNumber, r.NumbersPerTicket,
		pq.Array(r.ExcludedNumbers), r.Price, r.PrizeCost, r.Status, r.ImageURL,
		r.StartDate, r.EndDate, r.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("insert raffle: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, r raffle.Raffle) error {
	query := `UPDATE raffles SET
			name = $2, description = $3, digits_per_number = $4, numbers_per_ticket = $5,
			excluded_numbers = $6, price = $7, prize_cost = $8, status = $9,
			image_url = $10, end_date = $11
		WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query,
		r.ID, r.Name, r.Description, r.DigitsPerNumber, r.NumbersPerTicket,
		pq.Array(r.ExcludedNumbers), r.Price, r.PrizeCost, r.Status, r.ImageURL, r.EndDate,
	)
	if err != nil {
		return fmt.Errorf("update raffle: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (raffle.Raffle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE id = $1`, id)
	return scanRaffle(row)
}

func (s *Postgres) GetByShortID(ctx context.Context, shortID string) (raffle.Raffle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE short_id = $1`, shortID)
	return scanRaffle(row)
}

func (s *Postgres) List(ctx context.Context) ([]raffle.Raffle, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+raffleColumns+` FROM raffles ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	defer rows.Close()

	var out []raffle.Raffle
	for rows.Next() {
		r, err := scanRaffleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) ShortIDExists(ctx context.Context, shortID string) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM raffles WHERE short_id = $1)`, shortID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check short id: %w", err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRaffle(row *sql.Row) (raffle.Raffle, error) {
	r, err := scanRaffleRow(row)
	if err == sql.ErrNoRows {
		return raffle.Raffle{}, pkgerrors.New(pkgerrors.CodeNotFound, "raffle not found")
	}
	return r, err
}

func scanRaffleRow(sc scanner) (raffle.Raffle, error) {
	var (
		r       raffle.Raffle
		ownerID uuid.NullUUID
	)
	err := sc.Scan(
		&r.ID, &r.ShortID, &r.Name, &r.Description, &r.DigitsPerNumber, &r.NumbersPerTicket,
		pq.Array(&r.ExcludedNumbers), &r.Price, &r.PrizeCost, &r.Status, &r.ImageURL,
		&r.StartDate, &r.EndDate, &ownerID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return raffle.Raffle{}, err
		}
		return raffle.Raffle{}, fmt.Errorf("scan raffle: %w", err)
	}
	if ownerID.Valid {
		id := ownerID.UUID
		r.OwnerID = &id
	}
	return r, nil
}
