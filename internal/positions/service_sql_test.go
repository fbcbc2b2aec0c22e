package positions

import (
	"context"
	"testing"

	"levtrade/internal/apperr"
	"levtrade/internal/db"
	"levtrade/internal/events"
	"levtrade/internal/fees"
	"levtrade/internal/ledger"
	"levtrade/internal/marketdata"
	"levtrade/internal/types"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const holder = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type fixedQuotes map[string]marketdata.Quote

func (f fixedQuotes) Quote(symbol string) (marketdata.Quote, bool) {
	q, ok := f[symbol]
	return q, ok
}

type openMarket struct{}

func (openMarket) IsMarketOpen() (bool, string) { return true, "" }

func newSQLService(t *testing.T) (pgxmock.PgxPoolIface, *Service) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	tiers, err := fees.ParseTiers("5:0.05,20:0.075,100:0.1")
	require.NoError(t, err)
	schedule, err := fees.NewSchedule(tiers)
	require.NoError(t, err)
	quotes := fixedQuotes{"BTC/USD": {Symbol: "BTC/USD", Price: decimal.NewFromInt(100), Class: types.AssetClassCrypto}}

	svc := NewService(db.NewTxRunner(mock), ledger.NewService(mock, zap.NewNop()), NewStore(mock), schedule,
		quotes, openMarket{}, events.Discard{}, Config{MaxLive: 5, WinningsFee: decimal.RequireFromString("0.1")}, zap.NewNop())
	return mock, svc
}

func sqlOpenRequest() OpenRequest {
	return OpenRequest{Address: holder, Asset: "BTC/USD", Side: types.SideUp, Amount: decimal.NewFromInt(100), Leverage: 10}
}

func TestOpenLocksUserRowBeforeCountingAndDebiting(t *testing.T) {
	mock, svc := newSQLService(t)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`select id from users where address = \$1 for update`).
		WithArgs(holder).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`select count\(\*\) from positions where address = \$1 and status = 'live'`).
		WithArgs(holder).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`select count\(\*\) from positions where address = \$1 and created_at >= \$2`).
		WithArgs(holder, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`update users set balance = balance - \$1 where address = \$2 and balance >= \$1`).
		WithArgs(pgxmock.AnyArg(), holder).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.NewFromInt(900_000_000)))
	mock.ExpectQuery(`insert into positions`).
		WithArgs(pgxmock.AnyArg(), holder, "BTC/USD", "crypto", "up", pgxmock.AnyArg(), 10, "live",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(31)))
	mock.ExpectCommit()

	pos, err := svc.Open(context.Background(), sqlOpenRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(31), pos.ID)
	assert.True(t, pos.Amount.Equal(decimal.NewFromInt(100)), "no fee below the first tier")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenAtCapStopsUnderTheRowLock(t *testing.T) {
	mock, svc := newSQLService(t)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`select id from users where address = \$1 for update`).
		WithArgs(holder).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`select count\(\*\) from positions where address = \$1 and status = 'live'`).
		WithArgs(holder).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := svc.Open(context.Background(), sqlOpenRequest())
	assert.ErrorIs(t, err, apperr.ErrTooManyOpenPositions)
	assert.NoError(t, mock.ExpectationsWereMet(), "no debit or insert after the cap check")
}

func TestOpenUnknownUserFailsAtLock(t *testing.T) {
	mock, svc := newSQLService(t)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`for update`).
		WithArgs(holder).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.Open(context.Background(), sqlOpenRequest())
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
