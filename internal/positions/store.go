package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Settlement is the one-time terminal write of a live position.
type Settlement struct {
	Status    types.PositionStatus
	ExitPrice decimal.Decimal
	PnL       decimal.Decimal
	Fee       *decimal.Decimal
}

const positionColumns = "id, uuid, address, asset, asset_type, side, amount, leverage, status, entry_price, exit_price, bust_price, pnl, upfront_fee, fee, user_stop_loss_price, user_take_profit_price, created_at, updated_at"

// Store is the Postgres position repository. Every method runs on q when it
// is non-nil and on the pool otherwise.
type Store struct {
	pool db.DBTX
}

func NewStore(pool db.DBTX) *Store {
	return &Store{pool: pool}
}

func (s *Store) scope(q db.DBTX) db.DBTX {
	if q == nil {
		return s.pool
	}
	return q
}

func (s *Store) Insert(ctx context.Context, q db.DBTX, p *model.Position) error {
	now := time.Now().UTC()
	err := s.scope(q).QueryRow(ctx,
		"insert into positions (uuid, address, asset, asset_type, side, amount, leverage, status, entry_price, bust_price, upfront_fee, user_stop_loss_price, user_take_profit_price, created_at, updated_at) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14) returning id",
		p.UUID, p.Address, p.Asset, string(p.AssetClass), string(p.Side), p.Amount, p.Leverage, string(p.Status), p.EntryPrice, p.BustPrice, p.UpfrontFee, p.StopLossPrice, p.TakeProfitPrice, now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *Store) CountLive(ctx context.Context, q db.DBTX, address string) (int, error) {
	var n int
	err := s.scope(q).QueryRow(ctx, "select count(*) from positions where address = $1 and status = 'live'", address).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live positions: %w", err)
	}
	return n, nil
}

// CountSince counts every position the address opened at or after since,
// whatever its current status.
func (s *Store) CountSince(ctx context.Context, q db.DBTX, address string, since time.Time) (int, error) {
	var n int
	err := s.scope(q).QueryRow(ctx, "select count(*) from positions where address = $1 and created_at >= $2", address, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trailing positions: %w", err)
	}
	return n, nil
}

// GetLiveForUpdate locks a live position owned by address. Foreign, unknown
// and already terminal positions all report ErrPositionNotFound.
func (s *Store) GetLiveForUpdate(ctx context.Context, q db.DBTX, address string, id int64) (model.Position, error) {
	row := s.scope(q).QueryRow(ctx, "select "+positionColumns+" from positions where id = $1 and address = $2 and status = 'live' for update", id, address)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, apperr.ErrPositionNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get position %d: %w", id, err)
	}
	return p, nil
}

// Settle moves a live position to a terminal status. It reports false when the
// position is no longer live; the caller lost the race and must not apply any
// ledger effect.
func (s *Store) Settle(ctx context.Context, q db.DBTX, id int64, st Settlement) (bool, error) {
	if !types.PositionStatusLive.CanTransition(st.Status) {
		return false, fmt.Errorf("settle position %d: invalid target status %q", id, st.Status)
	}
	tag, err := s.scope(q).Exec(ctx,
		"update positions set status = $1, exit_price = $2, pnl = $3, fee = $4, updated_at = $5 where id = $6 and status = 'live'",
		string(st.Status), st.ExitPrice, st.PnL, st.Fee, time.Now().UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("settle position %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListByAddress(ctx context.Context, q db.DBTX, address string, statuses ...types.PositionStatus) ([]model.Position, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.scope(q).Query(ctx,
		"select "+positionColumns+" from positions where address = $1 and status = any($2) order by created_at desc, id desc",
		address, names,
	)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return collect(rows)
}

func (s *Store) ListLive(ctx context.Context, q db.DBTX) ([]model.Position, error) {
	rows, err := s.scope(q).Query(ctx, "select "+positionColumns+" from positions where status = 'live' order by id")
	if err != nil {
		return nil, fmt.Errorf("list live positions: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]model.Position, error) {
	defer rows.Close()
	out := []model.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPosition(row pgx.Row) (model.Position, error) {
	var p model.Position
	var class, side, status string
	err := row.Scan(&p.ID, &p.UUID, &p.Address, &p.Asset, &class, &side, &p.Amount, &p.Leverage, &status,
		&p.EntryPrice, &p.ExitPrice, &p.BustPrice, &p.PnL, &p.UpfrontFee, &p.Fee,
		&p.StopLossPrice, &p.TakeProfitPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.AssetClass = types.AssetClass(class)
	p.Side = types.Side(side)
	p.Status = types.PositionStatus(status)
	return p, nil
}
