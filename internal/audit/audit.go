// Package audit records ticket lifecycle actions on an append-only trail.
// Emission is fail-open: a broken sink must never block a sale.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Actions recorded on the trail.
const (
	ActionTicketCreated    = "ticket_created"
	ActionTicketCancelled  = "ticket_cancelled"
	ActionPaymentConfirmed = "payment_confirmed"
	ActionNumbersExpired   = "numbers_expired"
)

// Event is one recorded action. Keep it transport-agnostic so sinks can
// fan out.
type Event struct {
	ID       uuid.UUID `json:"id"`
	Action   string    `json:"action"`
	RaffleID uuid.UUID `json:"raffle_id"`
	TicketID uuid.UUID `json:"ticket_id"`
	ActorID  string    `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
}

// Sink delivers events somewhere durable.
type Sink interface {
	Append(ctx context.Context, e Event) error
	Close()
}

// Publisher stamps and forwards events to a sink.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) Emit(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return p.sink.Append(ctx, e)
}

func (p *Publisher) Close() {
	p.sink.Close()
}
