// Package ticket owns the ticket lifecycle: creation claims numbers,
// payment confirmation finalizes them, cancellation frees them.
package ticket

import (
	"time"

	"github.com/google/uuid"
)

// Ticket statuses. A ticket is created pending or paid, and pending moves to
// paid or cancelled. Paid is terminal except for cancellation.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Payment types accepted on creation and confirmation.
const (
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

// Ticket is one sold (or reserved) package of numbers. NumbersSnapshot is
// the authoritative record of which numbers the ticket claimed; the numbers
// table rows point back via ticket_id while the claim is live.
type Ticket struct {
	ID              uuid.UUID  `json:"id"`
	RaffleID        uuid.UUID  `json:"raffle_id"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	Status          string     `json:"status"`
	BuyerName       string     `json:"buyer_name"`
	BuyerPhone      string     `json:"buyer_phone"`
	PaymentType     string     `json:"payment_type,omitempty"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	PaymentProofURL string     `json:"payment_proof_url,omitempty"`
	NumbersSnapshot []string   `json:"numbers"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	// Enriched by the service on reads, not persisted on the ticket row.
	Responsible   string    `json:"responsible,omitempty"`
	RaffleName    string    `json:"raffle_name,omitempty"`
	RaffleShortID string    `json:"raffle_short_id,omitempty"`
	RaffleStatus  string    `json:"raffle_status,omitempty"`
	RafflePrice   int64     `json:"raffle_price,omitempty"`
	RaffleEndDate time.Time `json:"raffle_end_date,omitzero"`
}

// Active reports whether the ticket still holds its numbers.
func (t Ticket) Active() bool {
	return t.Status == StatusPending || t.Status == StatusPaid
}

// CreateRequest carries the fields accepted when selling a ticket.
type CreateRequest struct {
	BuyerName   string     `json:"buyer_name"`
	BuyerPhone  string     `json:"buyer_phone"`
	Numbers     []string   `json:"numbers"`
	Status      string     `json:"status"`
	PaymentType string     `json:"payment_type"`
	PaymentDate *time.Time `json:"payment_date"`
}

// SalesDay is one aggregated day of a monthly sales summary.
type SalesDay struct {
	Date    string `json:"date"`
	Tickets int    `json:"tickets"`
	Amount  int64  `json:"amount"`
}

// SalesSummary aggregates paid tickets over one calendar month.
type SalesSummary struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Tickets int        `json:"tickets"`
	Amount  int64      `json:"amount"`
	Days    []SalesDay `json:"days"`
}

// ReservationExpiry computes when a pending ticket's numbers lapse. With a
// reported payment date the seller has until the end of that day in the
// raffle's locale to confirm; without one the claim holds only for a short
// grace window.
func ReservationExpiry(now time.Time, paymentDate *time.Time, zone *time.Location, grace time.Duration) time.Time {
	if paymentDate != nil {
		d := paymentDate.In(zone)
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, zone)
	}
	return now.Add(grace)
}
