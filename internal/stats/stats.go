// Package stats derives aggregate figures from raffle configuration and
// ticket state. It is purely computed; nothing here mutates.
package stats

import (
	"time"

	"github.com/google/uuid"
)

// CountRule selects which ticket statuses count as "sold".
//
// The raffle list view historically counts paid tickets only, while the
// detail view counts paid plus pending to show sale progress. Keeping the
// rule as an explicit parameter makes both call sites visible; whether they
// should be unified is a pending product decision.
type CountRule int

const (
	// CountPaid counts only paid tickets.
	CountPaid CountRule = iota
	// CountClaimed counts paid and pending tickets.
	CountClaimed
)

// Includes reports whether a ticket status counts under the rule.
func (r CountRule) Includes(status string) bool {
	switch r {
	case CountClaimed:
		return status == "paid" || status == "pending"
	default:
		return status == "paid"
	}
}

// TicketSummary is the slice of ticket state the aggregator needs. Stores
// produce it so the raffle service never depends on the ticket module.
type TicketSummary struct {
	ID          uuid.UUID
	BuyerName   string
	Status      string
	Numbers     []string
	CreatedAt   time.Time
	Responsible string
}

// SellableUniverse is the universe size minus the excluded numbers.
func SellableUniverse(digits, excludedCount int) int {
	universe := 1
	for i := 0; i < digits; i++ {
		universe *= 10
	}
	return universe - excludedCount
}

// TotalPackages is how many whole tickets a raffle can sell. Creation-time
// validation guarantees the division is exact; if data predates that
// invariant the remainder is silently dropped rather than failing.
func TotalPackages(digits, excludedCount, numbersPerTicket int) int {
	if numbersPerTicket <= 0 {
		return 0
	}
	return SellableUniverse(digits, excludedCount) / numbersPerTicket
}

// TicketsSold counts tickets included by the rule.
func TicketsSold(tickets []TicketSummary, rule CountRule) int {
	n := 0
	for _, t := range tickets {
		if rule.Includes(t.Status) {
			n++
		}
	}
	return n
}

// Participants counts distinct buyer names among tickets included by the
// rule.
func Participants(tickets []TicketSummary, rule CountRule) int {
	seen := make(map[string]bool)
	for _, t := range tickets {
		if rule.Includes(t.Status) {
			seen[t.BuyerName] = true
		}
	}
	return len(seen)
}

// Filter returns the tickets included by the rule, preserving order.
func Filter(tickets []TicketSummary, rule CountRule) []TicketSummary {
	out := make([]TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		if rule.Includes(t.Status) {
			out = append(out, t)
		}
	}
	return out
}
