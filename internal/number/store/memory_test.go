package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rifa/internal/number"
)

func TestClaimReleaseFinalize(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()
	ticketID := uuid.New()
	expiry := time.Now().Add(15 * time.Minute)

	require.NoError(t, m.Claim(ctx, raffleID, []string{"05", "17"}, number.StatusReserved, ticketID, &expiry))

	rows, err := m.LockAndRead(ctx, raffleID, []string{"05", "17", "30"})
	require.NoError(t, err)
	require.Len(t, rows, 2, "rows exist only for touched values")
	for _, row := range rows {
		assert.Equal(t, number.StatusReserved, row.Status)
		assert.Equal(t, ticketID, *row.TicketID)
	}

	require.NoError(t, m.Finalize(ctx, number.IDs(rows)))
	status, err := m.Lookup(ctx, raffleID, "05")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAssigned, status)

	require.NoError(t, m.Release(ctx, number.IDs(rows)))
	status, err = m.Lookup(ctx, raffleID, "05")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAvailable, status)
}

func TestLookupTreatsMissingRowAsAvailable(t *testing.T) {
	m := NewMemory()
	status, err := m.Lookup(context.Background(), uuid.New(), "99")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAvailable, status)
}

func TestRandomAvailableSkipsTakenAndExcluded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()

	require.NoError(t, m.SeedExcluded(ctx, raffleID, []string{"7"}))
	require.NoError(t, m.Claim(ctx, raffleID, []string{"1", "2"}, number.StatusAssigned, uuid.New(), nil))

	values, err := m.RandomAvailable(ctx, raffleID, 1, []string{"7"}, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "3", "4", "5", "6", "8", "9"}, values)
}

func TestRandomAvailableIncludesReleasedRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()

	require.NoError(t, m.Claim(ctx, raffleID, []string{"4"}, number.StatusReserved, uuid.New(), nil))
	rows, err := m.LockAndRead(ctx, raffleID, []string{"4"})
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, number.IDs(rows)))

	values, err := m.RandomAvailable(ctx, raffleID, 1, nil, 10)
	require.NoError(t, err)
	assert.Contains(t, values, "4", "released rows return to the pool")
}

func TestExpiredReservedHonorsPendingCheck(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()
	pendingTicket := uuid.New()
	paidTicket := uuid.New()
	past := time.Now().Add(-time.Minute)

	m.PendingCheck = func(id uuid.UUID) bool { return id == pendingTicket }

	require.NoError(t, m.Claim(ctx, raffleID, []string{"1"}, number.StatusReserved, pendingTicket, &past))
	require.NoError(t, m.Claim(ctx, raffleID, []string{"2"}, number.StatusReserved, paidTicket, &past))

	expired, err := m.ExpiredReserved(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "1", expired[0].Value)
}

func TestResetCatalogKeepsOwnedRows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()
	ticketID := uuid.New()

	require.NoError(t, m.SeedExcluded(ctx, raffleID, []string{"7", "8"}))
	require.NoError(t, m.Claim(ctx, raffleID, []string{"1"}, number.StatusReserved, ticketID, nil))

	require.NoError(t, m.ResetCatalog(ctx, raffleID))

	status, err := m.Lookup(ctx, raffleID, "7")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAvailable, status)

	status, err = m.Lookup(ctx, raffleID, "1")
	require.NoError(t, err)
	assert.Equal(t, number.StatusReserved, status)
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	raffleID := uuid.New()

	require.NoError(t, m.Claim(ctx, raffleID, []string{"1"}, number.StatusReserved, uuid.New(), nil))
	snap := m.Snapshot()

	require.NoError(t, m.Claim(ctx, raffleID, []string{"2"}, number.StatusAssigned, uuid.New(), nil))
	m.Restore(snap)

	status, err := m.Lookup(ctx, raffleID, "2")
	require.NoError(t, err)
	assert.Equal(t, number.StatusAvailable, status)

	status, err = m.Lookup(ctx, raffleID, "1")
	require.NoError(t, err)
	assert.Equal(t, number.StatusReserved, status)
}
