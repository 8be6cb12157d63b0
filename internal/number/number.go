// Package number owns the per-raffle catalogue of number states. It knows
// nothing about tickets beyond the owning reference; business rules live in
// the ticket and raffle services.
//
// Rows are created lazily: a (raffle, number) pair without a row is
// available. Stores hide that convention behind Lookup, so callers always
// see a plain status and never reason about row absence. Excluded numbers
// are the exception: they are seeded as rows at raffle creation so the
// registry never has to special-case "excluded" as "absent".
package number

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status of a single number within a raffle.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusAssigned  Status = "assigned"
	StatusExcluded  Status = "excluded"
)

// Number is one materialized row of the catalogue.
type Number struct {
	ID       int64
	RaffleID uuid.UUID
	Value    string
	Status   Status
	TicketID *uuid.UUID
	// ExpireAt is only meaningful while Status is reserved.
	ExpireAt *time.Time
}

// Registry is the transactional face of the catalogue. Every method must be
// called inside the same unit of work as the ticket mutation that triggered
// it; partial application must never be observable.
type Registry interface {
	// LockAndRead acquires exclusive row locks on every existing row
	// matching the given values and returns them. Values with no row are
	// implicitly available and absent from the result; callers must treat
	// "no row returned" as "free to create".
	LockAndRead(ctx context.Context, raffleID uuid.UUID, values []string) ([]Number, error)

	// Claim points all given values at ticketID with the target status,
	// updating existing rows and creating rows for values with no prior
	// row. target must be StatusReserved (with expireAt) or StatusAssigned
	// (expireAt nil). Returns a conflict error when a row created by a
	// concurrent transaction prevents claiming every value.
	Claim(ctx context.Context, raffleID uuid.UUID, values []string, target Status, ticketID uuid.UUID, expireAt *time.Time) error

	// Release resets rows to available, clearing ticket and expiry.
	Release(ctx context.Context, ids []int64) error

	// Finalize transitions rows to assigned and clears expiry.
	Finalize(ctx context.Context, ids []int64) error

	// SeedExcluded creates excluded rows for a freshly created raffle.
	SeedExcluded(ctx context.Context, raffleID uuid.UUID, values []string) error

	// ResetCatalog deletes every row of the raffle that no ticket owns.
	// Callers invoke it before reseeding exclusions when raffle structure
	// changes; with no tickets sold that is the whole catalogue.
	ResetCatalog(ctx context.Context, raffleID uuid.UUID) error

	// ExpiredReserved locks and returns reserved rows whose expiry has
	// passed and whose owning ticket is still pending. The expiry sweep
	// releases them in the same transaction.
	ExpiredReserved(ctx context.Context, now time.Time) ([]Number, error)
}

// Reader answers availability questions outside of any transaction. Results
// are advisory: a subsequent create can still race and find a number taken;
// that race is resolved by Registry locking, not here.
type Reader interface {
	// Lookup reports the status of one value. A value with no row is
	// reported as available.
	Lookup(ctx context.Context, raffleID uuid.UUID, value string) (Status, error)

	// RandomAvailable picks count values uniformly at random, without
	// replacement, from the complement of taken and excluded numbers in
	// the universe of the given digit width. Returns fewer than count
	// values only via an error from the store; callers turn a short
	// result into an insufficient-availability failure.
	RandomAvailable(ctx context.Context, raffleID uuid.UUID, digits int, excluded []string, count int) ([]string, error)
}

// Format zero-pads n to the given digit width.
func Format(n, digits int) string {
	return fmt.Sprintf("%0*d", digits, n)
}

// Valid reports whether value is a digit string of exactly the given width.
func Valid(value string, digits int) bool {
	if len(value) != digits {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IDs collects row ids from a slice of numbers.
func IDs(nums []Number) []int64 {
	ids := make([]int64, 0, len(nums))
	for _, n := range nums {
		ids = append(ids, n.ID)
	}
	return ids
}

// Values collects number strings from a slice of numbers.
func Values(nums []Number) []string {
	vals := make([]string, 0, len(nums))
	for _, n := range nums {
		vals = append(vals, n.Value)
	}
	return vals
}
