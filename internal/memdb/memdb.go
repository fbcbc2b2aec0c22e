// Package memdb is an in-memory stand-in for the Postgres ledger and
// position store. Transactions are serialized and a failed transaction
// restores the state it started from.
package memdb

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/model"
	"levtrade/internal/positions"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var errNoSQL = errors.New("memdb: raw sql is not supported")

// scope is the db.DBTX handed to functions running inside InTx.
type scope struct{}

func (scope) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoSQL
}

func (scope) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errNoSQL }

func (scope) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return errNoSQL }

type Credit struct {
	Address string
	Micros  decimal.Decimal
}

type state struct {
	balances  map[string]decimal.Decimal
	positions map[int64]model.Position
	credits   []Credit
	nextID    int64
}

func (s state) clone() state {
	out := state{
		balances:  make(map[string]decimal.Decimal, len(s.balances)),
		positions: make(map[int64]model.Position, len(s.positions)),
		credits:   append([]Credit(nil), s.credits...),
		nextID:    s.nextID,
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.positions {
		out.positions[k] = v
	}
	return out
}

type DB struct {
	mu  sync.Mutex
	st  state
	Now func() time.Time
}

func New() *DB {
	return &DB{
		st:  state{balances: map[string]decimal.Decimal{}, positions: map[int64]model.Position{}},
		Now: time.Now,
	}
}

func (d *DB) InTx(_ context.Context, fn func(q db.DBTX) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	saved := d.st.clone()
	if err := fn(scope{}); err != nil {
		d.st = saved
		return err
	}
	return nil
}

// enter locks for calls made outside a transaction.
func (d *DB) enter(q db.DBTX) func() {
	if q != nil {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

func (d *DB) AddUser(address string, micros decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st.balances[address] = micros
}

func (d *DB) BalanceOf(address string) decimal.Decimal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st.balances[address]
}

func (d *DB) Credits() []Credit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Credit(nil), d.st.credits...)
}

func (d *DB) Get(id int64) (model.Position, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.st.positions[id]
	return p, ok
}

// Put stores p as-is, assigning an id when it has none.
func (d *DB) Put(p model.Position) model.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == 0 {
		d.st.nextID++
		p.ID = d.st.nextID
	}
	d.st.positions[p.ID] = p
	return p
}

// Ledger

func (d *DB) Lock(_ context.Context, q db.DBTX, address string) error {
	defer d.enter(q)()
	if _, ok := d.st.balances[address]; !ok {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (d *DB) Debit(_ context.Context, q db.DBTX, address string, micros decimal.Decimal) (bool, error) {
	defer d.enter(q)()
	amount := micros.RoundDown(0)
	bal, ok := d.st.balances[address]
	if !ok || bal.LessThan(amount) {
		return false, nil
	}
	d.st.balances[address] = bal.Sub(amount)
	return true, nil
}

func (d *DB) Credit(_ context.Context, q db.DBTX, address string, micros decimal.Decimal) error {
	defer d.enter(q)()
	amount := micros.RoundDown(0)
	bal, ok := d.st.balances[address]
	if !ok {
		return nil
	}
	d.st.balances[address] = bal.Add(amount)
	d.st.credits = append(d.st.credits, Credit{Address: address, Micros: amount})
	return nil
}

// Positions

func (d *DB) Insert(_ context.Context, q db.DBTX, p *model.Position) error {
	defer d.enter(q)()
	d.st.nextID++
	p.ID = d.st.nextID
	p.CreatedAt = d.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	d.st.positions[p.ID] = *p
	return nil
}

func (d *DB) CountLive(_ context.Context, q db.DBTX, address string) (int, error) {
	defer d.enter(q)()
	n := 0
	for _, p := range d.st.positions {
		if p.Address == address && p.Status == types.PositionStatusLive {
			n++
		}
	}
	return n, nil
}

func (d *DB) CountSince(_ context.Context, q db.DBTX, address string, since time.Time) (int, error) {
	defer d.enter(q)()
	n := 0
	for _, p := range d.st.positions {
		if p.Address == address && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (d *DB) GetLiveForUpdate(_ context.Context, q db.DBTX, address string, id int64) (model.Position, error) {
	defer d.enter(q)()
	p, ok := d.st.positions[id]
	if !ok || p.Address != address || p.Status != types.PositionStatusLive {
		return model.Position{}, apperr.ErrPositionNotFound
	}
	return p, nil
}

func (d *DB) Settle(_ context.Context, q db.DBTX, id int64, st positions.Settlement) (bool, error) {
	defer d.enter(q)()
	p, ok := d.st.positions[id]
	if !ok || !p.Status.CanTransition(st.Status) {
		return false, nil
	}
	exit, pnl := st.ExitPrice, st.PnL
	p.Status = st.Status
	p.ExitPrice = &exit
	p.PnL = &pnl
	p.Fee = st.Fee
	p.UpdatedAt = d.Now().UTC()
	d.st.positions[id] = p
	return true, nil
}

func (d *DB) ListByAddress(_ context.Context, q db.DBTX, address string, statuses ...types.PositionStatus) ([]model.Position, error) {
	defer d.enter(q)()
	want := map[types.PositionStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	out := []model.Position{}
	for _, p := range d.st.positions {
		if p.Address == address && want[p.Status] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (d *DB) ListLive(_ context.Context, q db.DBTX) ([]model.Position, error) {
	defer d.enter(q)()
	out := []model.Position{}
	for _, p := range d.st.positions {
		if p.Status == types.PositionStatusLive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
