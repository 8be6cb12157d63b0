package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rifa/internal/stats"
	"rifa/internal/ticket"
	pkgerrors "rifa/pkg/domain-errors"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists tickets in PostgreSQL.
type Postgres struct {
	q querier
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{q: db}
}

func NewPostgresTx(tx *sql.Tx) *Postgres {
	return &Postgres{q: tx}
}

const ticketColumns = `id, raffle_id, user_id, status, buyer_name, buyer_phone,
	payment_type, payment_date, payment_proof_url, numbers_snapshot, created_at, updated_at`

func (s *Postgres) Insert(ctx context.Context, t ticket.Ticket) error {
	query := `INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.q.ExecContext(ctx, query,
		t.ID, t.RaffleID, t.UserID, t.Status, t.BuyerName, t.BuyerPhone,
		nullString(t.PaymentType), t.PaymentDate, nullString(t.PaymentProofURL),
		pq.Array(t.NumbersSnapshot), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, t ticket.Ticket) error {
	query := `UPDATE tickets SET
			status = $2, buyer_name = $3, buyer_phone = $4, payment_type = $5,
			payment_date = $6, payment_proof_url = $7, updated_at = $8
		WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query,
		t.ID, t.Status, t.BuyerName, t.BuyerPhone, nullString(t.PaymentType),
		t.PaymentDate, nullString(t.PaymentProofURL), t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (ticket.Ticket, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return ticket.Ticket{}, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return t, err
}

func (s *Postgres) ListByRaffle(ctx context.Context, raffleID uuid.UUID) ([]ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE raffle_id = $1 ORDER BY created_at DESC`
	rows, err := s.q.QueryContext(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (s *Postgres) PaidBetween(ctx context.Context, raffleID uuid.UUID, from, to time.Time) ([]ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
		WHERE raffle_id = $1 AND status = 'paid'
		  AND payment_date >= $2 AND payment_date < $3
		ORDER BY payment_date`
	rows, err := s.q.QueryContext(ctx, query, raffleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list paid tickets: %w", err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

// SummariesByRaffle serves the raffle module's aggregates. The join pulls
// the selling user's name so list views need no second lookup.
func (s *Postgres) SummariesByRaffle(ctx context.Context, raffleID uuid.UUID) ([]stats.TicketSummary, error) {
	query := `SELECT t.id, t.buyer_name, t.status, t.numbers_snapshot, t.created_at,
			COALESCE(u.username, '')
		FROM tickets t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.raffle_id = $1`
	rows, err := s.q.QueryContext(ctx, query, raffleID)
	if err != nil {
		return nil, fmt.Errorf("load ticket summaries: %w", err)
	}
	defer rows.Close()

	var out []stats.TicketSummary
	for rows.Next() {
		var sum stats.TicketSummary
		if err := rows.Scan(&sum.ID, &sum.BuyerName, &sum.Status, pq.Array(&sum.Numbers), &sum.CreatedAt, &sum.Responsible); err != nil {
			return nil, fmt.Errorf("scan ticket summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// HasActiveTickets reports whether any non-cancelled ticket exists, which
// freezes the raffle's structural fields.
func (s *Postgres) HasActiveTickets(ctx context.Context, raffleID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE raffle_id = $1 AND status != 'cancelled')`, raffleID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tickets: %w", err)
	}
	return exists, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTickets(rows *sql.Rows) ([]ticket.Ticket, error) {
	var out []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(sc scanner) (ticket.Ticket, error) {
	var (
		t           ticket.Ticket
		userID      uuid.NullUUID
		paymentType sql.NullString
		paymentDate sql.NullTime
		proofURL    sql.NullString
		updatedAt   sql.NullTime
	)
	err := sc.Scan(
		&t.ID, &t.RaffleID, &userID, &t.Status, &t.BuyerName, &t.BuyerPhone,
		&paymentType, &paymentDate, &proofURL, pq.Array(&t.NumbersSnapshot),
		&t.CreatedAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return ticket.Ticket{}, err
		}
		return ticket.Ticket{}, fmt.Errorf("scan ticket: %w", err)
	}
	if userID.Valid {
		id := userID.UUID
		t.UserID = &id
	}
	t.PaymentType = paymentType.String
	t.PaymentProofURL = proofURL.String
	if paymentDate.Valid {
		d := paymentDate.Time
		t.PaymentDate = &d
	}
	if updatedAt.Valid {
		u := updatedAt.Time
		t.UpdatedAt = &u
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
