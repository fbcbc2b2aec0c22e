package pricing

import (
	"testing"

	"levtrade/internal/money"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBustPrice(t *testing.T) {
	cases := []struct {
		name     string
		stake    string
		leverage int
		entry    string
		side     types.Side
		want     string
	}{
		{"long 1x busts at zero", "100", 1, "100", types.SideUp, "0"},
		{"short 2x", "100", 2, "100", types.SideDown, "150"},
		{"long 10x", "100", 10, "100", types.SideUp, "90"},
		{"short 10x", "100", 10, "27000", types.SideDown, "29700"},
		{"long 1000x", "5", 1000, "2000", types.SideUp, "1998"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := BustPrice(d(c.stake), c.leverage, d(c.entry), c.side)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(c.want)), "got %s want %s", got, c.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestBustPriceRejectsDegenerateInputs(t *testing.T) {
	_, err := BustPrice(d("100"), 0, d("100"), types.SideUp)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = BustPrice(d("100"), 1001, d("100"), types.SideUp)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = BustPrice(d("100"), 10, d("0"), types.SideUp)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = BustPrice(d("-1"), 10, d("100"), types.SideUp)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = BustPrice(d("100"), 10, d("100"), types.Side("flat"))
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestAdjustForClass(t *testing.T) {
	assert.True(t, AdjustForClass(d("123.4567"), types.AssetClassStock).Equal(d("123.45")))
	assert.True(t, AdjustForClass(d("123.4567"), types.AssetClassCrypto).Equal(d("123.4567")))
}

func TestPnL(t *testing.T) {
	got, err := PnL(d("100"), d("110"), d("100"), 10, types.SideUp)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("100")))

	got, err = PnL(d("100"), d("110"), d("100"), 10, types.SideDown)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("-100")))

	got, err = PnL(d("100"), d("100"), d("100"), 50, types.SideUp)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = PnL(d("100"), d("110"), d("100"), 10, types.Side("sideways"))
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, err = PnL(d("0"), d("110"), d("100"), 10, types.SideUp)
	assert.ErrorIs(t, err, money.ErrDivisionByZero)
}

func TestSettlementFee(t *testing.T) {
	net, fee := SettlementFee(d("100"), d("0.1"))
	assert.True(t, net.Equal(d("90")))
	assert.True(t, fee.Equal(d("10")))

	net, fee = SettlementFee(d("1.23456789"), d("0.1"))
	assert.True(t, fee.Equal(d("0.1234")))
	assert.True(t, net.Add(fee).Equal(d("1.23456789")))

	net, fee = SettlementFee(d("-12.345678"), d("0.1"))
	assert.True(t, net.Equal(d("-12.345678")))
	assert.True(t, fee.Equal(d("-12.3456")))

	net, fee = SettlementFee(decimal.Zero, d("0.1"))
	assert.True(t, net.IsZero())
	assert.True(t, fee.IsZero())
}

func TestPayout(t *testing.T) {
	assert.True(t, Payout(d("100"), d("90")).Equal(d("190")))
	assert.True(t, Payout(d("100"), d("-150")).IsZero())
	assert.True(t, Payout(d("100"), d("0.0000009")).Equal(d("100")))
}

func TestBreachedInclusive(t *testing.T) {
	hit, err := Breached(types.SideUp, d("90"), d("90"))
	require.NoError(t, err)
	assert.True(t, hit)
	hit, _ = Breached(types.SideUp, d("90.01"), d("90"))
	assert.False(t, hit)
	hit, _ = Breached(types.SideDown, d("150"), d("150"))
	assert.True(t, hit)
	hit, _ = Breached(types.SideDown, d("149.99"), d("150"))
	assert.False(t, hit)
	_, err = Breached(types.Side(""), d("1"), d("1"))
	assert.ErrorIs(t, err, ErrInvalidSide)
}
