package transfers

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

const transferColumns = "id, address, direction, status, tx_hash, asset_amount, stable_amount, destination_address, approved, created_at, updated_at"

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

func (s *Store) InsertWithdrawal(ctx context.Context, q db.DBTX, address, destination string, micros decimal.Decimal) (model.Transfer, error) {
	now := time.Now().UTC()
	row := s.scope(q).QueryRow(ctx,
		"insert into transfers (address, direction, status, stable_amount, destination_address, approved, created_at, updated_at) values ($1, 'withdrawal', 'pending', $2, $3, false, $4, $4) returning "+transferColumns,
		address, micros, destination, now)
	t, err := scanTransfer(row)
	if err != nil {
		return t, fmt.Errorf("insert withdrawal: %w", err)
	}
	return t, nil
}

// InsertDeposit records a pending deposit once per tx hash. A repeated hash
// returns the existing row and created=false.
func (s *Store) InsertDeposit(ctx context.Context, q db.DBTX, address, txHash string, assetAmount decimal.Decimal) (model.Transfer, bool, error) {
	now := time.Now().UTC()
	row := s.scope(q).QueryRow(ctx,
		"insert into transfers (address, direction, status, tx_hash, asset_amount, created_at, updated_at) values ($1, 'deposit', 'pending', $2, $3, $4, $4) on conflict (tx_hash) do nothing returning "+transferColumns,
		address, txHash, assetAmount, now)
	t, err := scanTransfer(row)
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return t, false, fmt.Errorf("insert deposit: %w", err)
	}
	t, err = scanTransfer(s.scope(q).QueryRow(ctx, "select "+transferColumns+" from transfers where tx_hash = $1", txHash))
	if err != nil {
		return t, false, fmt.Errorf("load deposit %s: %w", txHash, err)
	}
	return t, false, nil
}

// GetPendingForUpdate locks a pending transfer of the given direction.
func (s *Store) GetPendingForUpdate(ctx context.Context, q db.DBTX, id int64, dir types.TransferDirection) (model.Transfer, error) {
	row := s.scope(q).QueryRow(ctx,
		"select "+transferColumns+" from transfers where id = $1 and direction = $2 and status = 'pending' for update",
		id, string(dir))
	t, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, apperr.ErrTransferNotFound
	}
	if err != nil {
		return t, fmt.Errorf("get transfer %d: %w", id, err)
	}
	return t, nil
}

// Finish moves a pending transfer of the given direction to a terminal
// status. stable and txHash are written only when non-nil.
func (s *Store) Finish(ctx context.Context, q db.DBTX, id int64, dir types.TransferDirection, status types.TransferStatus, stable *decimal.Decimal, txHash *string) (bool, error) {
	tag, err := s.scope(q).Exec(ctx,
		"update transfers set status = $1, stable_amount = coalesce($2, stable_amount), tx_hash = coalesce($3, tx_hash), updated_at = $4 where id = $5 and direction = $6 and status = 'pending'",
		string(status), stable, txHash, time.Now().UTC(), id, string(dir))
	if err != nil {
		return false, fmt.Errorf("finish transfer %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Approve(ctx context.Context, q db.DBTX, id int64) (bool, error) {
	tag, err := s.scope(q).Exec(ctx,
		"update transfers set approved = true, updated_at = $1 where id = $2 and direction = 'withdrawal' and status = 'pending'",
		time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("approve withdrawal %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// PendingWithdrawals lists pending withdrawals below thresholdMicros plus the
// approved ones at or above it, oldest first.
func (s *Store) PendingWithdrawals(ctx context.Context, q db.DBTX, thresholdMicros decimal.Decimal) ([]model.Transfer, error) {
	rows, err := s.scope(q).Query(ctx,
		"select "+transferColumns+" from transfers where direction = 'withdrawal' and status = 'pending' and (approved or stable_amount < $1) order by created_at, id",
		thresholdMicros)
	if err != nil {
		return nil, fmt.Errorf("list pending withdrawals: %w", err)
	}
	defer rows.Close()
	out := []model.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransfer(row pgx.Row) (model.Transfer, error) {
	var t model.Transfer
	var dir, status string
	err := row.Scan(&t.ID, &t.Address, &dir, &status, &t.TxHash, &t.AssetAmount, &t.StableAmount,
		&t.DestinationAddress, &t.Approved, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.Direction = types.TransferDirection(dir)
	t.Status = types.TransferStatus(status)
	return t, nil
}
