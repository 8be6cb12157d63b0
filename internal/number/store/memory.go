package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"rifa/internal/number"
)

// Memory keeps the number catalogue in process. It mirrors the row
// semantics of the Postgres store under a coarse mutex and is used by unit
// tests and local development.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	// rows is keyed by raffle, then by number value.
	rows map[uuid.UUID]map[string]*number.Number

	// PendingCheck tells ExpiredReserved whether a ticket is still
	// pending. The Postgres store answers this with a join; in memory the
	// wiring injects a lookup into the ticket store. A nil check treats
	// every owning ticket as pending.
	PendingCheck func(ticketID uuid.UUID) bool
}

// NewMemory creates an empty in-memory catalogue.
func NewMemory() *Memory {
	return &Memory{rows: make(map[uuid.UUID]map[string]*number.Number)}
}

func (m *Memory) raffleRows(raffleID uuid.UUID) map[string]*number.Number {
	rows, ok := m.rows[raffleID]
	if !ok {
		rows = make(map[string]*number.Number)
		m.rows[raffleID] = rows
	}
	return rows
}

// LockAndRead returns existing rows for the given values. The in-memory
// store has no row locks; atomicity comes from the memory tx runner's
// mutex, which serializes whole transactions.
func (m *Memory) LockAndRead(_ context.Context, raffleID uuid.UUID, values []string) ([]number.Number, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[raffleID]
	var out []number.Number
	for _, v := range values {
		if row, ok := rows[v]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *Memory) Claim(_ context.Context, raffleID uuid.UUID, values []string, target number.Status, ticketID uuid.UUID, expireAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.raffleRows(raffleID)
	tid := ticketID
	for _, v := range values {
		row, ok := rows[v]
		if !ok {
			m.nextID++
			row = &number.Number{ID: m.nextID, RaffleID: raffleID, Value: v}
			rows[v] = row
		}
		row.Status = target
		row.TicketID = &tid
		row.ExpireAt = expireAt
	}
	return nil
}

func (m *Memory) Release(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.each(ids, func(row *number.Number) {
		row.Status = number.StatusAvailable
		row.TicketID = nil
		row.ExpireAt = nil
	})
	return nil
}

func (m *Memory) Finalize(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.each(ids, func(row *number.Number) {
		row.Status = number.StatusAssigned
		row.ExpireAt = nil
	})
	return nil
}

func (m *Memory) SeedExcluded(_ context.Context, raffleID uuid.UUID, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.raffleRows(raffleID)
	for _, v := range values {
		m.nextID++
		rows[v] = &number.Number{ID: m.nextID, RaffleID: raffleID, Value: v, Status: number.StatusExcluded}
	}
	return nil
}

func (m *Memory) ResetCatalog(_ context.Context, raffleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[raffleID]
	for v, row := range rows {
		if row.TicketID == nil {
			delete(rows, v)
		}
	}
	return nil
}

func (m *Memory) ExpiredReserved(_ context.Context, now time.Time) ([]number.Number, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []number.Number
	for _, rows := range m.rows {
		for _, row := range rows {
			if row.Status != number.StatusReserved || row.ExpireAt == nil || !row.ExpireAt.Before(now) {
				continue
			}
			if m.PendingCheck != nil && row.TicketID != nil && !m.PendingCheck(*row.TicketID) {
				continue
			}
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *Memory) Lookup(_ context.Context, raffleID uuid.UUID, value string) (number.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[raffleID][value]; ok {
		return row.Status, nil
	}
	return number.StatusAvailable, nil
}

func (m *Memory) RandomAvailable(_ context.Context, raffleID uuid.UUID, digits int, excluded []string, count int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	skip := make(map[string]bool, len(excluded))
	for _, v := range excluded {
		skip[v] = true
	}

	universe := 1
	for i := 0; i < digits; i++ {
		universe *= 10
	}
	rows := m.rows[raffleID]
	free := make([]string, 0, universe)
	for i := 0; i < universe; i++ {
		v := number.Format(i, digits)
		if skip[v] {
			continue
		}
		if row, ok := rows[v]; ok && row.Status != number.StatusAvailable {
			continue
		}
		free = append(free, v)
	}

	rand.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	if len(free) > count {
		free = free[:count]
	}
	return free, nil
}

func (m *Memory) each(ids []int64, fn func(*number.Number)) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, rows := range m.rows {
		for _, row := range rows {
			if want[row.ID] {
				fn(row)
			}
		}
	}
}

// Snapshot clones the catalogue state. Memory transaction runners use it
// with Restore to roll back on error.
func (m *Memory) Snapshot() map[uuid.UUID]map[string]number.Number {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[uuid.UUID]map[string]number.Number, len(m.rows))
	for raffleID, rows := range m.rows {
		clone := make(map[string]number.Number, len(rows))
		for v, row := range rows {
			clone[v] = *row
		}
		snap[raffleID] = clone
	}
	return snap
}

// Restore replaces the catalogue state with a snapshot.
func (m *Memory) Restore(snap map[uuid.UUID]map[string]number.Number) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[uuid.UUID]map[string]*number.Number, len(snap))
	for raffleID, rows := range snap {
		clone := make(map[string]*number.Number, len(rows))
		for v := range rows {
			row := rows[v]
			clone[v] = &row
		}
		m.rows[raffleID] = clone
	}
}
