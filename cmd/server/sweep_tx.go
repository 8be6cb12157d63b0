package main

import (
	"context"
	"database/sql"
	"time"

	"rifa/internal/number"
	numberstore "rifa/internal/number/store"
	pkgerrors "rifa/pkg/domain-errors"
)

// sweepTxTimeout is generous: a sweep can touch many rows at once after the
// service was down for a while.
const sweepTxTimeout = 30 * time.Second

type sweepPostgresTx struct {
	db *sql.DB
}

func newSweepPostgresTx(db *sql.DB) *sweepPostgresTx {
	return &sweepPostgresTx{db: db}
}

func (t *sweepPostgresTx) RunInTx(ctx context.Context, fn func(number.Registry) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sweepTxTimeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(numberstore.NewPostgresTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}
