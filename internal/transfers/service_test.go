package transfers

import (
	"context"
	"testing"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/ledger"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const addr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// decEq matches a decimal argument by value regardless of its exponent.
type decEq string

func (m decEq) Match(v any) bool {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.Equal(d(string(m)))
	case *decimal.Decimal:
		return x != nil && x.Equal(d(string(m)))
	}
	return false
}

func transferRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "address", "direction", "status", "tx_hash", "asset_amount", "stable_amount",
		"destination_address", "approved", "created_at", "updated_at"})
}

func newService(t *testing.T) (pgxmock.PgxPoolIface, *Service) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	svc := NewService(db.NewTxRunner(mock), NewStore(mock), ledger.NewService(mock, zap.NewNop()), Config{
		BridgeCost:        d("0.50"),
		ApprovalThreshold: d("200"),
	}, zap.NewNop())
	return mock, svc
}

func TestDepositValue(t *testing.T) {
	assert.True(t, DepositValue(d("0.5"), d("1650.257"), d("0.50")).Equal(d("824.62")))
	assert.True(t, DepositValue(d("0.0001"), d("1650"), d("0.50")).Equal(d("-0.34")))
}

func TestSettleDepositCredits(t *testing.T) {
	mock, svc := newService(t)
	now := time.Now()
	asset := d("0.5")
	var none *string
	var noStable *decimal.Decimal

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`from transfers where id = \$1 and direction = \$2 and status = 'pending' for update`).
		WithArgs(int64(1), "deposit").
		WillReturnRows(transferRows().AddRow(int64(1), addr, "deposit", "pending", none, &asset, noStable, none, false, now, now))
	mock.ExpectExec(`update transfers set status = \$1`).
		WithArgs("success", decEq("824620000"), none, pgxmock.AnyArg(), int64(1), "deposit").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`update users set balance = balance \+ \$1`).
		WithArgs(decEq("824620000"), addr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tr, err := svc.SettleDeposit(context.Background(), 1, d("1650.257"))
	require.NoError(t, err)
	assert.Equal(t, types.TransferStatusSuccess, tr.Status)
	assert.True(t, tr.StableAmount.Equal(d("824620000")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleDustDepositFails(t *testing.T) {
	mock, svc := newService(t)
	now := time.Now()
	asset := d("0.0001")
	var none *string
	var noStable *decimal.Decimal

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`for update`).
		WithArgs(int64(2), "deposit").
		WillReturnRows(transferRows().AddRow(int64(2), addr, "deposit", "pending", none, &asset, noStable, none, false, now, now))
	mock.ExpectExec(`update transfers set status = \$1`).
		WithArgs("failed", decEq("0"), none, pgxmock.AnyArg(), int64(2), "deposit").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tr, err := svc.SettleDeposit(context.Background(), 2, d("1650"))
	require.NoError(t, err)
	assert.Equal(t, types.TransferStatusFailed, tr.Status)
	assert.NoError(t, mock.ExpectationsWereMet(), "no credit is issued")
}

func TestSettleDepositTwiceIsNotFound(t *testing.T) {
	mock, svc := newService(t)
	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`for update`).WithArgs(int64(1), "deposit").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.SettleDeposit(context.Background(), 1, d("1650"))
	assert.ErrorIs(t, err, apperr.ErrTransferNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailWithdrawalRefunds(t *testing.T) {
	mock, svc := newService(t)
	now := time.Now()
	stable := d("50000000")
	dest := addr
	var none *string
	var noAsset *decimal.Decimal
	var noStable *decimal.Decimal

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`for update`).
		WithArgs(int64(9), "withdrawal").
		WillReturnRows(transferRows().AddRow(int64(9), addr, "withdrawal", "pending", none, noAsset, &stable, &dest, false, now, now))
	mock.ExpectExec(`update transfers set status = \$1`).
		WithArgs("failed", noStable, none, pgxmock.AnyArg(), int64(9), "withdrawal").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`update users set balance = balance \+ \$1`).
		WithArgs(decEq("50000000"), addr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, svc.FailWithdrawal(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteWithdrawal(t *testing.T) {
	mock, svc := newService(t)
	hash := "0xfeed"
	var noStable *decimal.Decimal
	mock.ExpectExec(`update transfers set status = \$1 .* where id = \$5 and direction = \$6 and status = 'pending'`).
		WithArgs("success", noStable, &hash, pgxmock.AnyArg(), int64(3), "withdrawal").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.CompleteWithdrawal(context.Background(), 3, hash)
	assert.ErrorIs(t, err, apperr.ErrTransferNotFound, "already finished")
	assert.ErrorIs(t, svc.CompleteWithdrawal(context.Background(), 3, ""), apperr.ErrValidation)
}

func TestPendingWithdrawalsUsesMicroThreshold(t *testing.T) {
	mock, svc := newService(t)
	mock.ExpectQuery(`where direction = 'withdrawal' and status = 'pending' and \(approved or stable_amount < \$1\)`).
		WithArgs(decEq("200000000")).
		WillReturnRows(transferRows())

	out, err := svc.PendingWithdrawals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveWithdrawal(t *testing.T) {
	mock, svc := newService(t)
	mock.ExpectExec(`update transfers set approved = true`).WithArgs(pgxmock.AnyArg(), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`update transfers set approved = true`).WithArgs(pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, svc.ApproveWithdrawal(context.Background(), 4))
	assert.ErrorIs(t, svc.ApproveWithdrawal(context.Background(), 5), apperr.ErrTransferNotFound)
}

func TestRecordDepositIsIdempotent(t *testing.T) {
	mock, svc := newService(t)
	now := time.Now()
	hash := "0xabc"
	asset := d("1.5")
	var none *string
	var noStable *decimal.Decimal

	mock.ExpectQuery(`insert into transfers .* on conflict \(tx_hash\) do nothing`).
		WithArgs(addr, hash, asset, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`from transfers where tx_hash = \$1`).
		WithArgs(hash).
		WillReturnRows(transferRows().AddRow(int64(11), addr, "deposit", "success", &hash, &asset, noStable, none, false, now, now))

	tr, err := svc.RecordDeposit(context.Background(), addr, hash, asset)
	require.NoError(t, err)
	assert.Equal(t, int64(11), tr.ID)
	assert.Equal(t, types.TransferStatusSuccess, tr.Status)

	_, err = svc.RecordDeposit(context.Background(), addr, "", asset)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCompleteWithdrawalCannotFinishDeposit(t *testing.T) {
	mock, svc := newService(t)
	hash := "0xabc"
	var noStable *decimal.Decimal
	// Id 7 is a pending deposit: the withdrawal-scoped update matches nothing.
	mock.ExpectExec(`where id = \$5 and direction = \$6 and status = 'pending'`).
		WithArgs("success", noStable, &hash, pgxmock.AnyArg(), int64(7), "withdrawal").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := svc.CompleteWithdrawal(context.Background(), 7, hash)
	assert.ErrorIs(t, err, apperr.ErrTransferNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
