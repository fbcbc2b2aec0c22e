package positions

import (
	"context"
	"testing"
	"time"

	"levtrade/internal/apperr"
	"levtrade/internal/model"
	"levtrade/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestStoreInsertAssignsID(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery("insert into positions").
		WithArgs("u-1", "0xabc", "BTC/USD", "crypto", "up", pgxmock.AnyArg(), 10, "live",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	p := model.Position{
		UUID: "u-1", Address: "0xabc", Asset: "BTC/USD", AssetClass: types.AssetClassCrypto,
		Side: types.SideUp, Amount: decimal.NewFromInt(100), Leverage: 10, Status: types.PositionStatusLive,
		EntryPrice: decimal.NewFromInt(100), BustPrice: decimal.NewFromInt(90),
	}
	require.NoError(t, store.Insert(context.Background(), nil, &p))
	assert.Equal(t, int64(42), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSettleIsConditional(t *testing.T) {
	mock, store := newMockStore(t)
	fee := decimal.NewFromInt(1)
	st := Settlement{Status: types.PositionStatusBusted, ExitPrice: decimal.NewFromInt(90), PnL: decimal.NewFromInt(-100), Fee: &fee}

	mock.ExpectExec(`update positions set status = \$1, exit_price = \$2, pnl = \$3, fee = \$4, updated_at = \$5 where id = \$6 and status = 'live'`).
		WithArgs("busted", st.ExitPrice, st.PnL, st.Fee, pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("update positions").
		WithArgs("busted", st.ExitPrice, st.PnL, st.Fee, pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.Settle(context.Background(), nil, 7, st)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Settle(context.Background(), nil, 7, st)
	require.NoError(t, err)
	assert.False(t, ok, "second settle loses the race")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSettleRejectsLiveTarget(t *testing.T) {
	_, store := newMockStore(t)
	_, err := store.Settle(context.Background(), nil, 1, Settlement{Status: types.PositionStatusLive})
	assert.Error(t, err)
}

func TestStoreGetLiveForUpdateNotFound(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(`from positions where id = \$1 and address = \$2 and status = 'live' for update`).
		WithArgs(int64(3), "0xabc").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetLiveForUpdate(context.Background(), nil, "0xabc", 3)
	assert.ErrorIs(t, err, apperr.ErrPositionNotFound)
}

func positionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "uuid", "address", "asset", "asset_type", "side", "amount", "leverage", "status",
		"entry_price", "exit_price", "bust_price", "pnl", "upfront_fee", "fee", "user_stop_loss_price", "user_take_profit_price",
		"created_at", "updated_at"})
}

func TestStoreListLive(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Now()
	var none *decimal.Decimal
	mock.ExpectQuery("from positions where status = 'live'").
		WillReturnRows(positionRows().
			AddRow(int64(1), "u-1", "0xabc", "BTC/USD", "crypto", "down", decimal.NewFromInt(100), 2, "live",
				decimal.NewFromInt(100), none, decimal.NewFromInt(150), none, decimal.Zero, none, none, none, now, now))

	live, err := store.ListLive(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, types.SideDown, live[0].Side)
	assert.Equal(t, types.AssetClassCrypto, live[0].AssetClass)
	assert.True(t, live[0].BustPrice.Equal(decimal.NewFromInt(150)))
	assert.Nil(t, live[0].ExitPrice)
}

func TestStoreCounts(t *testing.T) {
	mock, store := newMockStore(t)
	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("select count").WithArgs("0xabc").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("select count").WithArgs("0xabc", since).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	live, err := store.CountLive(context.Background(), nil, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 3, live)
	trailing, err := store.CountSince(context.Background(), nil, "0xabc", since)
	require.NoError(t, err)
	assert.Equal(t, 12, trailing)
}
