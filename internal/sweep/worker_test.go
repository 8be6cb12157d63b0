package sweep

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/audit"
	"rifa/internal/number"
	numberstore "rifa/internal/number/store"
	"rifa/internal/ticket"
	ticketstore "rifa/internal/ticket/store"
)

type memoryTx struct {
	mu      sync.Mutex
	numbers *numberstore.Memory
}

func (m *memoryTx) RunInTx(_ context.Context, fn func(number.Registry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.numbers.Snapshot()
	if err := fn(m.numbers); err != nil {
		m.numbers.Restore(snap)
		return err
	}
	return nil
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	numbers := numberstore.NewMemory()
	tickets := ticketstore.NewMemory()
	numbers.PendingCheck = tickets.IsPending
	sink := audit.NewMemorySink()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	worker := New(&memoryTx{numbers: numbers}, time.Minute, audit.NewPublisher(sink), nil, logger)

	raffleID := uuid.New()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	lapsed := ticket.Ticket{ID: uuid.New(), RaffleID: raffleID, Status: ticket.StatusPending}
	fresh := ticket.Ticket{ID: uuid.New(), RaffleID: raffleID, Status: ticket.StatusPending}
	paid := ticket.Ticket{ID: uuid.New(), RaffleID: raffleID, Status: ticket.StatusPaid}
	require.NoError(t, tickets.Insert(ctx, lapsed))
	require.NoError(t, tickets.Insert(ctx, fresh))
	require.NoError(t, tickets.Insert(ctx, paid))

	require.NoError(t, numbers.Claim(ctx, raffleID, []string{"01", "02"}, number.StatusReserved, lapsed.ID, &past))
	require.NoError(t, numbers.Claim(ctx, raffleID, []string{"03"}, number.StatusReserved, fresh.ID, &future))
	require.NoError(t, numbers.Claim(ctx, raffleID, []string{"04"}, number.StatusAssigned, paid.ID, nil))

	released, err := worker.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	for value, want := range map[string]number.Status{
		"01": number.StatusAvailable,
		"02": number.StatusAvailable,
		"03": number.StatusReserved,
		"04": number.StatusAssigned,
	} {
		status, err := numbers.Lookup(ctx, raffleID, value)
		require.NoError(t, err)
		assert.Equal(t, want, status, "number %s", value)
	}

	// The ticket itself stays pending so the sale record survives.
	got, err := tickets.Get(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusPending, got.Status)

	events := sink.Events()
	require.Len(t, events, 1, "one event per affected ticket")
	assert.Equal(t, audit.ActionNumbersExpired, events[0].Action)
	assert.Equal(t, lapsed.ID, events[0].TicketID)

	t.Run("second sweep finds nothing", func(t *testing.T) {
		released, err := worker.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, released)
	})
}
