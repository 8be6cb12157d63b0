package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationExpiry(t *testing.T) {
	bogota := time.FixedZone("America/Bogota", -5*3600)
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	t.Run("reported payment holds until end of that day", func(t *testing.T) {
		paymentDate := time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC)
		exp := ReservationExpiry(now, &paymentDate, bogota, 15*time.Minute)
		assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 0, bogota), exp)
	})

	t.Run("payment date crossing midnight uses the locale's day", func(t *testing.T) {
		// 02:30 UTC on the 11th is still the evening of the 10th in Bogota.
		paymentDate := time.Date(2026, 3, 11, 2, 30, 0, 0, time.UTC)
		exp := ReservationExpiry(now, &paymentDate, bogota, 15*time.Minute)
		assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 0, bogota), exp)
	})

	t.Run("no payment date gets only the grace window", func(t *testing.T) {
		exp := ReservationExpiry(now, nil, bogota, 15*time.Minute)
		assert.Equal(t, now.Add(15*time.Minute), exp)
	})
}

func TestActive(t *testing.T) {
	assert.True(t, Ticket{Status: StatusPending}.Active())
	assert.True(t, Ticket{Status: StatusPaid}.Active())
	assert.False(t, Ticket{Status: StatusCancelled}.Active())
}
