// Package raffle owns raffle configuration: the number universe, exclusions,
// package size and pricing. Ticket lifecycle lives in the ticket package.
package raffle

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Raffle is one configured draw. DigitsPerNumber fixes the universe
// (10^digits zero-padded values) and NumbersPerTicket the package size;
// both are immutable once any ticket exists.
type Raffle struct {
	ID               uuid.UUID  `json:"id"`
	ShortID          string     `json:"short_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	DigitsPerNumber  int        `json:"digits_per_number"`
	NumbersPerTicket int        `json:"numbers_per_ticket"`
	ExcludedNumbers  []string   `json:"excluded_numbers"`
	Price            int64      `json:"price"`
	PrizeCost        float64    `json:"prize_cost"`
	Status           string     `json:"status"`
	ImageURL         string     `json:"image_url"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	OwnerID          *uuid.UUID `json:"owner_id,omitempty"`
}

// OpenForSale reports whether tickets may be created. Status is stored
// free-form; any casing of "open" or "active" means selling.
func (r Raffle) OpenForSale() bool {
	switch strings.ToLower(r.Status) {
	case "open", "active":
		return true
	}
	return false
}

// Stats are the derived figures attached to raffle reads.
type Stats struct {
	TotalNumbers int `json:"total_numbers"`
	TicketsSold  int `json:"tickets_sold"`
	Participants int `json:"participants"`
}

// WithStats is a raffle plus its aggregates, as returned by reads.
type WithStats struct {
	Raffle
	Stats Stats `json:"stats"`
}

// CreateRequest carries the fields accepted at creation.
type CreateRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	DigitsPerNumber  int      `json:"digits_per_number"`
	NumbersPerTicket int      `json:"numbers_per_ticket"`
	ExcludedNumbers  []string `json:"excluded_numbers"`
	Price            int64    `json:"price"`
	PrizeCost        float64  `json:"prize_cost"`
	ImageURL         string   `json:"image_url"`
	EndDate          time.Time `json:"end_date"`
}

// Optional is a tri-state JSON field for partial updates: absent, or
// present with a value. A field explicitly set to null decodes as absent
// and is ignored; updates cannot clear a field to its zero value through
// this type.
type Optional[T any] struct {
	Value T
	Set   bool
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// UpdateRequest carries a partial update. Structural fields are rejected by
// the service once tickets exist; the rest apply whenever set.
type UpdateRequest struct {
	Name             Optional[string]    `json:"name"`
	Description      Optional[string]    `json:"description"`
	Price            Optional[int64]     `json:"price"`
	PrizeCost        Optional[float64]   `json:"prize_cost"`
	Status           Optional[string]    `json:"status"`
	ImageURL         Optional[string]    `json:"image_url"`
	EndDate          Optional[time.Time] `json:"end_date"`
	DigitsPerNumber  Optional[int]       `json:"digits_per_number"`
	NumbersPerTicket Optional[int]       `json:"numbers_per_ticket"`
	ExcludedNumbers  Optional[[]string]  `json:"excluded_numbers"`
}

// TouchesStructure reports whether the update names a field that is frozen
// once tickets exist.
func (u UpdateRequest) TouchesStructure() bool {
	return u.DigitsPerNumber.Set || u.NumbersPerTicket.Set || u.ExcludedNumbers.Set
}
