// Package money collects the fixed-point helpers every balance and price
// computation goes through. Values are shopspring decimals; nothing here
// touches binary floating point.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// LedgerScale is the number of fractional digits of stored balances.
	LedgerScale int32 = 6
	// DisplayScale is used for currency-like outputs.
	DisplayScale int32 = 2
	// DivisionPrecision bounds the digits kept by Div.
	DivisionPrecision int32 = 18
)

var ErrDivisionByZero = errors.New("division by zero")

// Div returns a/b rounded half-up to DivisionPrecision places.
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.DivRound(b, DivisionPrecision), nil
}

// RoundDown truncates toward zero so the fractional remainder stays with the house.
func RoundDown(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundDown(places)
}

// ToMicros converts a stable amount to integer ledger units, truncating.
func ToMicros(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(LedgerScale).RoundDown(0)
}

func FromMicros(micros decimal.Decimal) decimal.Decimal {
	return micros.Shift(-LedgerScale)
}

// Display renders d truncated to DisplayScale places.
func Display(d decimal.Decimal) string {
	return d.RoundDown(DisplayScale).StringFixed(DisplayScale)
}

func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	return decimal.NewFromString(raw)
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
