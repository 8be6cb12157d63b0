package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/number"
	numberstore "rifa/internal/number/store"
	"rifa/internal/raffle"
	rafflestore "rifa/internal/raffle/store"
	"rifa/internal/stats"
	pkgerrors "rifa/pkg/domain-errors"
)

// memoryTx mimics a database transaction over the in-memory stores by
// snapshotting state up front and restoring it when fn fails.
type memoryTx struct {
	raffles *rafflestore.Memory
	numbers *numberstore.Memory
}

func (m *memoryTx) RunInTx(_ context.Context, fn func(Stores) error) error {
	raffleSnap := m.raffles.Snapshot()
	numberSnap := m.numbers.Snapshot()
	if err := fn(Stores{Raffles: m.raffles, Numbers: m.numbers}); err != nil {
		m.raffles.Restore(raffleSnap)
		m.numbers.Restore(numberSnap)
		return err
	}
	return nil
}

type fakeTickets struct {
	summaries map[uuid.UUID][]stats.TicketSummary
	sold      map[uuid.UUID]bool
}

func (f *fakeTickets) SummariesByRaffle(_ context.Context, raffleID uuid.UUID) ([]stats.TicketSummary, error) {
	return f.summaries[raffleID], nil
}

func (f *fakeTickets) HasActiveTickets(_ context.Context, raffleID uuid.UUID) (bool, error) {
	return f.sold[raffleID], nil
}

type fixture struct {
	svc     *Service
	raffles *rafflestore.Memory
	numbers *numberstore.Memory
	tickets *fakeTickets
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	raffles := rafflestore.NewMemory()
	numbers := numberstore.NewMemory()
	tickets := &fakeTickets{
		summaries: make(map[uuid.UUID][]stats.TicketSummary),
		sold:      make(map[uuid.UUID]bool),
	}
	tx := &memoryTx{raffles: raffles, numbers: numbers}
	return &fixture{
		svc:     NewService(tx, raffles, numbers, tickets, nil),
		raffles: raffles,
		numbers: numbers,
		tickets: tickets,
	}
}

func validCreate() raffle.CreateRequest {
	return raffle.CreateRequest{
		Name:             "Moto 2026",
		DigitsPerNumber:  2,
		NumbersPerTicket: 4,
		Price:            20000,
		EndDate:          time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*raffle.CreateRequest)
	}{
		{"missing name", func(r *raffle.CreateRequest) { r.Name = "" }},
		{"digits too small", func(r *raffle.CreateRequest) { r.DigitsPerNumber = 0 }},
		{"digits too large", func(r *raffle.CreateRequest) { r.DigitsPerNumber = 7 }},
		{"zero package size", func(r *raffle.CreateRequest) { r.NumbersPerTicket = 0 }},
		{"negative price", func(r *raffle.CreateRequest) { r.Price = -1 }},
		{"missing end date", func(r *raffle.CreateRequest) { r.EndDate = time.Time{} }},
		{"excluded wrong width", func(r *raffle.CreateRequest) { r.ExcludedNumbers = []string{"007"} }},
		{"excluded not numeric", func(r *raffle.CreateRequest) { r.ExcludedNumbers = []string{"ab"} }},
		{"excluded duplicated", func(r *raffle.CreateRequest) {
			r.ExcludedNumbers = []string{"07", "07", "11", "12"}
		}},
		{"missing required exclusions", func(r *raffle.CreateRequest) { r.NumbersPerTicket = 3 }},
		{"surplus exclusions", func(r *raffle.CreateRequest) {
			r.ExcludedNumbers = []string{"01", "02", "03", "04"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreate()
			tc.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeBadRequest), "want bad_request, got %v", err)
		})
	}
}

func TestCreateSeedsExclusions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := validCreate()
	req.DigitsPerNumber = 1
	req.NumbersPerTicket = 3
	req.ExcludedNumbers = []string{"7"}

	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Len(t, created.ShortID, 5)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, 3, created.Stats.TotalNumbers)

	status, err := f.numbers.Lookup(ctx, created.ID, "7")
	require.NoError(t, err)
	assert.Equal(t, number.StatusExcluded, status)

	status, err = f.numbers.Lookup(ctx, created.ID, "3")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAvailable, status)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("partial update applies only set fields", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, validCreate())
		require.NoError(t, err)

		updated, err := f.svc.Update(ctx, created.ShortID, raffle.UpdateRequest{
			Price:  raffle.Optional[int64]{Value: 25000, Set: true},
			Status: raffle.Optional[string]{Value: "closed", Set: true},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(25000), updated.Price)
		assert.Equal(t, "closed", updated.Status)
		assert.Equal(t, created.Name, updated.Name)
	})

	t.Run("structural change frozen once tickets exist", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, validCreate())
		require.NoError(t, err)
		f.tickets.sold[created.ID] = true

		_, err = f.svc.Update(ctx, created.ShortID, raffle.UpdateRequest{
			NumbersPerTicket: raffle.Optional[int]{Value: 2, Set: true},
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))
	})

	t.Run("structural change before sales reseeds exclusions", func(t *testing.T) {
		f := newFixture(t)
		req := validCreate()
		req.DigitsPerNumber = 1
		req.NumbersPerTicket = 3
		req.ExcludedNumbers = []string{"7"}
		created, err := f.svc.Create(ctx, req)
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, created.ShortID, raffle.UpdateRequest{
			ExcludedNumbers: raffle.Optional[[]string]{Value: []string{"1"}, Set: true},
		})
		require.NoError(t, err)

		status, err := f.numbers.Lookup(ctx, created.ID, "7")
		require.NoError(t, err)
		assert.Equal(t, number.StatusAvailable, status)

		status, err = f.numbers.Lookup(ctx, created.ID, "1")
		require.NoError(t, err)
		assert.Equal(t, number.StatusExcluded, status)
	})

	t.Run("invalid structural change rolls nothing forward", func(t *testing.T) {
		f := newFixture(t)
		created, err := f.svc.Create(ctx, validCreate())
		require.NoError(t, err)

		_, err = f.svc.Update(ctx, created.ShortID, raffle.UpdateRequest{
			NumbersPerTicket: raffle.Optional[int]{Value: 3, Set: true},
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeBadRequest))

		current, err := f.svc.Get(ctx, created.ShortID)
		require.NoError(t, err)
		assert.Equal(t, 4, current.NumbersPerTicket)
	})

	t.Run("unknown raffle", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Update(ctx, "NOPE1", raffle.UpdateRequest{})
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	})
}

func TestCountingRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validCreate())
	require.NoError(t, err)
	f.tickets.summaries[created.ID] = []stats.TicketSummary{
		{BuyerName: "ana", Status: "paid"},
		{BuyerName: "luis", Status: "pending"},
		{BuyerName: "marta", Status: "cancelled"},
	}

	detail, err := f.svc.Get(ctx, created.ShortID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Stats.TicketsSold, "detail view counts pending")
	assert.Equal(t, 2, detail.Stats.Participants)
	assert.Equal(t, 25, detail.Stats.TotalNumbers)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Stats.TicketsSold, "list view counts paid only")
	assert.Equal(t, 1, list[0].Stats.Participants)
}

func TestCheckNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := validCreate()
	req.DigitsPerNumber = 2
	req.NumbersPerTicket = 7
	req.ExcludedNumbers = []string{"13", "31"}
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	t.Run("untouched number is available", func(t *testing.T) {
		status, err := f.svc.CheckNumber(ctx, created.ShortID, "05")
		require.NoError(t, err)
		assert.Equal(t, number.StatusAvailable, status)
	})

	t.Run("excluded number reports excluded", func(t *testing.T) {
		status, err := f.svc.CheckNumber(ctx, created.ShortID, "13")
		require.NoError(t, err)
		assert.Equal(t, number.StatusExcluded, status)
	})

	t.Run("wrong width rejected", func(t *testing.T) {
		_, err := f.svc.CheckNumber(ctx, created.ShortID, "5")
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeBadRequest))
	})
}

func TestRandomNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := validCreate()
	req.DigitsPerNumber = 1
	req.NumbersPerTicket = 3
	req.ExcludedNumbers = []string{"0"}
	created, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	t.Run("default count is the package size", func(t *testing.T) {
		values, err := f.svc.RandomNumbers(ctx, created.ShortID, 0)
		require.NoError(t, err)
		assert.Len(t, values, 3)
		for _, v := range values {
			assert.NotEqual(t, "0", v)
		}
	})

	t.Run("no repeats within one pick", func(t *testing.T) {
		values, err := f.svc.RandomNumbers(ctx, created.ShortID, 9)
		require.NoError(t, err)
		seen := make(map[string]bool)
		for _, v := range values {
			assert.False(t, seen[v])
			seen[v] = true
		}
	})

	t.Run("asking beyond the universe fails", func(t *testing.T) {
		_, err := f.svc.RandomNumbers(ctx, created.ShortID, 10)
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientAvailability))
	})
}
