// Package sweep releases reserved numbers whose payment window lapsed.
// Only the numbers are freed; the owning ticket stays pending so the sale
// record survives and can be confirmed later against fresh numbers.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rifa/internal/audit"
	"rifa/internal/number"
	"rifa/internal/platform/metrics"
)

// TxRunner executes fn atomically against a tx-scoped number registry.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(number.Registry) error) error
}

// Worker periodically sweeps expired reservations.
type Worker struct {
	tx       TxRunner
	interval time.Duration
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(tx TxRunner, interval time.Duration, pub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Worker {
	return &Worker{tx: tx, interval: interval, audit: pub, metrics: m, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			released, err := w.Sweep(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "expiry sweep failed", "error", err.Error())
				continue
			}
			if released > 0 {
				w.logger.InfoContext(ctx, "expired reservations released", "numbers", released)
			}
		}
	}
}

// Sweep releases every lapsed reservation in one transaction and returns
// how many numbers were freed.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	var expired []number.Number
	err := w.tx.RunInTx(ctx, func(reg number.Registry) error {
		rows, err := reg.ExpiredReserved(ctx, time.Now())
		if err != nil {
			return err
		}
		if err := reg.Release(ctx, number.IDs(rows)); err != nil {
			return err
		}
		expired = rows
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if w.metrics != nil {
		w.metrics.ReservationsExpired.Add(float64(len(expired)))
	}
	w.emit(ctx, expired)
	return len(expired), nil
}

// emit records one trail event per affected ticket.
func (w *Worker) emit(ctx context.Context, expired []number.Number) {
	if w.audit == nil {
		return
	}
	type key struct {
		raffleID uuid.UUID
		ticketID uuid.UUID
	}
	seen := map[key]bool{}
	for _, n := range expired {
		if n.TicketID == nil {
			continue
		}
		k := key{raffleID: n.RaffleID, ticketID: *n.TicketID}
		if seen[k] {
			continue
		}
		seen[k] = true
		err := w.audit.Emit(ctx, audit.Event{
			Action:   audit.ActionNumbersExpired,
			RaffleID: k.raffleID,
			TicketID: k.ticketID,
		})
		if err != nil {
			w.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionNumbersExpired, "error", err.Error())
		}
	}
}
