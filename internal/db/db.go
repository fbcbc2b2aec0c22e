package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query scope shared by *pgxpool.Pool and pgx.Tx, so store and
// ledger methods can run standalone or inside a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Transactor runs fn in one database transaction. A non-nil error from fn
// rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(q DBTX) error) error
}

type TxRunner struct {
	db   TxBeginner
	opts pgx.TxOptions
}

// TxOptions is read committed; money-moving paths take row locks and
// conditional writes instead of relying on serializable retries.
var TxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

func NewTxRunner(db TxBeginner) *TxRunner {
	return &TxRunner{db: db, opts: TxOptions}
}

func (r *TxRunner) InTx(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := r.db.BeginTx(ctx, r.opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}
