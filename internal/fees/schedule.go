package fees

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier applies Rate once the trailing count is strictly greater than Above.
type Tier struct {
	Above int
	Rate  decimal.Decimal
}

type Schedule struct {
	tiers []Tier // highest threshold first
}

func NewSchedule(tiers []Tier) (*Schedule, error) {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for _, t := range out {
		if t.Above < 0 {
			return nil, fmt.Errorf("fee tier threshold %d is negative", t.Above)
		}
		if t.Rate.IsNegative() || t.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("fee tier rate %s out of range", t.Rate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Above > out[j].Above })
	return &Schedule{tiers: out}, nil
}

// ParseTiers reads "5:0.05,20:0.075,100:0.1".
func ParseTiers(raw string) ([]Tier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var tiers []Tier
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), ":", 2)
		if len(parts) != 2 {
			return nil, errors.New("invalid fee tier " + item)
		}
		above, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid fee tier threshold %q: %w", parts[0], err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid fee tier rate %q: %w", parts[1], err)
		}
		tiers = append(tiers, Tier{Above: above, Rate: rate})
	}
	return tiers, nil
}

// FeePercentage returns the rate of the highest tier whose threshold the
// trailing count exceeds. A count equal to a threshold stays in the lower tier.
func (s *Schedule) FeePercentage(trailingCount int) decimal.Decimal {
	for _, t := range s.tiers {
		if trailingCount > t.Above {
			return t.Rate
		}
	}
	return decimal.Zero
}

// ApplyFee splits amount into the net stake and the fee. The fee is rounded to
// cents and the net is truncated, so net+fee never exceeds amount.
func ApplyFee(amount, rate decimal.Decimal) (net, fee decimal.Decimal) {
	fee = amount.Mul(rate).Round(2)
	net = amount.Sub(fee).RoundDown(2)
	return net, fee
}
