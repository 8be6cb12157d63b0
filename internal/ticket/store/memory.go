package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rifa/internal/stats"
	"rifa/internal/ticket"
	pkgerrors "rifa/pkg/domain-errors"
)

// Memory is the in-process ticket store used by unit tests and local
// development.
type Memory struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]ticket.Ticket
}

func NewMemory() *Memory {
	return &Memory{tickets: make(map[uuid.UUID]ticket.Ticket)}
}

func (m *Memory) Insert(_ context.Context, t ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = t
	return nil
}

func (m *Memory) Update(_ context.Context, t ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	m.tickets[t.ID] = t
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return ticket.Ticket{}, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
	}
	return t, nil
}

func (m *Memory) ListByRaffle(_ context.Context, raffleID uuid.UUID) ([]ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ticket.Ticket
	for _, t := range m.tickets {
		if t.RaffleID == raffleID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) PaidBetween(_ context.Context, raffleID uuid.UUID, from, to time.Time) ([]ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ticket.Ticket
	for _, t := range m.tickets {
		if t.RaffleID != raffleID || t.Status != ticket.StatusPaid || t.PaymentDate == nil {
			continue
		}
		if t.PaymentDate.Before(from) || !t.PaymentDate.Before(to) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.Before(*out[j].PaymentDate) })
	return out, nil
}

// SummariesByRaffle serves the raffle module's aggregates.
func (m *Memory) SummariesByRaffle(_ context.Context, raffleID uuid.UUID) ([]stats.TicketSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []stats.TicketSummary
	for _, t := range m.tickets {
		if t.RaffleID != raffleID {
			continue
		}
		out = append(out, stats.TicketSummary{
			ID:        t.ID,
			BuyerName: t.BuyerName,
			Status:    t.Status,
			Numbers:   t.NumbersSnapshot,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

func (m *Memory) HasActiveTickets(_ context.Context, raffleID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tickets {
		if t.RaffleID == raffleID && t.Active() {
			return true, nil
		}
	}
	return false, nil
}

// IsPending backs the number store's pending check during expiry sweeps.
func (m *Memory) IsPending(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	return ok && t.Status == ticket.StatusPending
}

// Snapshot clones the store state for memory transaction runners.
func (m *Memory) Snapshot() map[uuid.UUID]ticket.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[uuid.UUID]ticket.Ticket, len(m.tickets))
	for id, t := range m.tickets {
		snap[id] = t
	}
	return snap
}

// Restore replaces the store state with a snapshot.
func (m *Memory) Restore(snap map[uuid.UUID]ticket.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = make(map[uuid.UUID]ticket.Ticket, len(snap))
	for id, t := range snap {
		m.tickets[id] = t
	}
}
