package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSellableUniverse(t *testing.T) {
	assert.Equal(t, 100, SellableUniverse(2, 0))
	assert.Equal(t, 9, SellableUniverse(1, 1))
	assert.Equal(t, 9990, SellableUniverse(4, 10))
}

func TestTotalPackages(t *testing.T) {
	assert.Equal(t, 100, TotalPackages(2, 0, 1))
	assert.Equal(t, 3, TotalPackages(1, 1, 3))

	t.Run("remainder is dropped, not fatal", func(t *testing.T) {
		assert.Equal(t, 3, TotalPackages(1, 0, 3))
	})

	t.Run("zero package size yields zero", func(t *testing.T) {
		assert.Equal(t, 0, TotalPackages(2, 0, 0))
	})
}

func TestCountRules(t *testing.T) {
	tickets := []TicketSummary{
		{BuyerName: "ana", Status: "paid"},
		{BuyerName: "ana", Status: "pending"},
		{BuyerName: "luis", Status: "pending"},
		{BuyerName: "marta", Status: "cancelled"},
	}

	t.Run("paid only", func(t *testing.T) {
		assert.Equal(t, 1, TicketsSold(tickets, CountPaid))
		assert.Equal(t, 1, Participants(tickets, CountPaid))
	})

	t.Run("claimed counts pending too", func(t *testing.T) {
		assert.Equal(t, 3, TicketsSold(tickets, CountClaimed))
		assert.Equal(t, 2, Participants(tickets, CountClaimed))
	})

	t.Run("cancelled never counts", func(t *testing.T) {
		assert.Len(t, Filter(tickets, CountClaimed), 3)
		for _, summary := range Filter(tickets, CountClaimed) {
			assert.NotEqual(t, "cancelled", summary.Status)
		}
	})
}
