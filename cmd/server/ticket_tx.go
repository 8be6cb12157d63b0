package main

import (
	"context"
	"database/sql"
	"time"

	numberstore "rifa/internal/number/store"
	ticketservice "rifa/internal/ticket/service"
	ticketstore "rifa/internal/ticket/store"
	pkgerrors "rifa/pkg/domain-errors"
)

type ticketPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newTicketPostgresTx(db *sql.DB) *ticketPostgresTx {
	return &ticketPostgresTx{db: db}
}

func (t *ticketPostgresTx) RunInTx(ctx context.Context, fn func(ticketservice.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stores := ticketservice.Stores{
		Tickets: ticketstore.NewPostgresTx(tx),
		Numbers: numberstore.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	return tx.Commit()
}
