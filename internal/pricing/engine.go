package pricing

import (
	"errors"
	"fmt"

	"levtrade/internal/money"
	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

const (
	MinLeverage = 1
	MaxLeverage = 1000
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidSide     = errors.New("invalid side, must be up or down")
)

func ValidLeverage(leverage int) bool {
	return leverage >= MinLeverage && leverage <= MaxLeverage
}

// BustPrice is the price at which the loss equals the stake.
//
//	size     = stake * leverage
//	quantity = size / entry
//	up:   |stake - size| / quantity
//	down: (stake + size) / quantity
func BustPrice(stake decimal.Decimal, leverage int, entry decimal.Decimal, side types.Side) (decimal.Decimal, error) {
	if !ValidLeverage(leverage) || !entry.IsPositive() || !stake.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: stake=%s leverage=%d entry=%s", ErrInvalidPosition, stake, leverage, entry)
	}
	size := stake.Mul(decimal.NewFromInt(int64(leverage)))
	var margin decimal.Decimal
	switch side {
	case types.SideUp:
		margin = stake.Sub(size)
	case types.SideDown:
		margin = stake.Add(size)
	default:
		return decimal.Zero, ErrInvalidSide
	}
	// margin/quantity == margin*entry/size, computed with one division.
	bust, err := money.Div(margin.Mul(entry), size)
	if err != nil {
		return decimal.Zero, err
	}
	return bust.Abs(), nil
}

// AdjustForClass truncates stock prices to cents; crypto keeps full precision.
func AdjustForClass(price decimal.Decimal, class types.AssetClass) decimal.Decimal {
	if class == types.AssetClassStock {
		return money.RoundDown(price, 2)
	}
	return price
}

// PnL of a position marked at current.
func PnL(entry, current, stake decimal.Decimal, leverage int, side types.Side) (decimal.Decimal, error) {
	size := stake.Mul(decimal.NewFromInt(int64(leverage)))
	var move decimal.Decimal
	switch side {
	case types.SideUp:
		move = current.Sub(entry)
	case types.SideDown:
		move = entry.Sub(current)
	default:
		return decimal.Zero, ErrInvalidSide
	}
	return money.Div(move.Mul(size), entry)
}

// SettlementFee splits a realized pnl into the amount kept by the user and the
// fee column. Only winnings are charged; a non-positive pnl is recorded in the
// fee column as-is for audit and nothing is charged.
func SettlementFee(pnl, winningsRate decimal.Decimal) (net, fee decimal.Decimal) {
	if pnl.IsPositive() {
		fee = money.RoundDown(pnl.Mul(winningsRate), 4)
		return pnl.Sub(fee), fee
	}
	return pnl, money.RoundDown(pnl, 4)
}

// Payout is the stake plus net pnl, floored at zero and truncated to ledger scale.
func Payout(stake, netPnL decimal.Decimal) decimal.Decimal {
	total := money.Max(decimal.Zero, netPnL.Add(stake))
	return money.RoundDown(total, money.LedgerScale)
}

// Breached reports whether current has reached the bust price. The boundary
// is inclusive.
func Breached(side types.Side, current, bust decimal.Decimal) (bool, error) {
	switch side {
	case types.SideUp:
		return current.LessThanOrEqual(bust), nil
	case types.SideDown:
		return current.GreaterThanOrEqual(bust), nil
	default:
		return false, ErrInvalidSide
	}
}
