package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the raffle service.
// Counters track lifecycle transitions; histograms track critical-path
// durations (ticket creation holds row locks, so its latency matters).
type Metrics struct {
	TicketsCreated       *prometheus.CounterVec
	TicketsCancelled     prometheus.Counter
	PaymentsConfirmed    prometheus.Counter
	NumbersClaimed       prometheus.Counter
	ReservationsExpired  prometheus.Counter
	RafflesCreated       prometheus.Counter
	TicketCreateDuration prometheus.Histogram
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all metrics.
func New() *Metrics {
	return &Metrics{
		TicketsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rifa_tickets_created_total",
			Help: "Total tickets created, by initial status",
		}, []string{"status"}),
		TicketsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rifa_tickets_cancelled_total",
			Help: "Total tickets cancelled",
		}),
		PaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rifa_payments_confirmed_total",
			Help: "Total pending tickets confirmed as paid",
		}),
		NumbersClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rifa_numbers_claimed_total",
			Help: "Total raffle numbers claimed by tickets",
		}),
		ReservationsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rifa_reservations_expired_total",
			Help: "Total reserved numbers released by the expiry sweep",
		}),
		RafflesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rifa_raffles_created_total",
			Help: "Total raffles created",
		}),
		TicketCreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rifa_ticket_create_duration_seconds",
			Help:    "Duration of ticket creation (lock-holding path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rifa_http_request_duration_seconds",
			Help:    "HTTP request duration by route and status class",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// ObserveTicketCreate records the duration of a ticket creation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveTicketCreate(start time.Time) {
	m.TicketCreateDuration.Observe(time.Since(start).Seconds())
}
