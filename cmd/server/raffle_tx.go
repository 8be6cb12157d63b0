package main

import (
	"context"
	"database/sql"
	"time"

	numberstore "rifa/internal/number/store"
	raffleservice "rifa/internal/raffle/service"
	rafflestore "rifa/internal/raffle/store"
	pkgerrors "rifa/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

type rafflePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRafflePostgresTx(db *sql.DB) *rafflePostgresTx {
	return &rafflePostgresTx{db: db}
}

func (t *rafflePostgresTx) RunInTx(ctx context.Context, fn func(raffleservice.Stores) error) error {
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

	stores := raffleservice.Stores{
		Raffles: rafflestore.NewPostgresTx(tx),
		Numbers: numberstore.NewPostgresTx(tx),
	}
	if err := fn(stores); err != nil {
		return err
	}
	return tx.Commit()
}
