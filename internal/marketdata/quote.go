package marketdata

import (
	"sort"
	"sync/atomic"
	"time"

	"levtrade/internal/types"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol string           `json:"symbol"`
	Price  decimal.Decimal  `json:"price"`
	Class  types.AssetClass `json:"asset_type"`
}

// Snapshot is an immutable symbol -> quote view. Crypto entries win when a
// symbol appears in both lists.
type Snapshot struct {
	quotes   map[string]Quote
	loadedAt time.Time
}

func NewSnapshot(crypto, stocks []Quote, loadedAt time.Time) *Snapshot {
	m := make(map[string]Quote, len(crypto)+len(stocks))
	for _, q := range stocks {
		if q.Symbol == "" || !q.Price.IsPositive() {
			continue
		}
		q.Class = types.AssetClassStock
		m[q.Symbol] = q
	}
	for _, q := range crypto {
		if q.Symbol == "" || !q.Price.IsPositive() {
			continue
		}
		q.Class = types.AssetClassCrypto
		m[q.Symbol] = q
	}
	return &Snapshot{quotes: m, loadedAt: loadedAt}
}

func (s *Snapshot) Quote(symbol string) (Quote, bool) {
	if s == nil {
		return Quote{}, false
	}
	q, ok := s.quotes[symbol]
	return q, ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.quotes)
}

func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Assets groups symbols by class, each list sorted.
type Assets struct {
	Crypto []Quote `json:"crypto"`
	Stocks []Quote `json:"stocks"`
}

func (s *Snapshot) List() Assets {
	out := Assets{Crypto: []Quote{}, Stocks: []Quote{}}
	if s == nil {
		return out
	}
	for _, q := range s.quotes {
		if q.Class == types.AssetClassStock {
			out.Stocks = append(out.Stocks, q)
		} else {
			out.Crypto = append(out.Crypto, q)
		}
	}
	sort.Slice(out.Crypto, func(i, j int) bool { return out.Crypto[i].Symbol < out.Crypto[j].Symbol })
	sort.Slice(out.Stocks, func(i, j int) bool { return out.Stocks[i].Symbol < out.Stocks[j].Symbol })
	return out
}

// Prices holds the latest snapshot. Readers never block on a refresh.
type Prices struct {
	current atomic.Pointer[Snapshot]
}

func NewPrices() *Prices {
	p := &Prices{}
	p.current.Store(NewSnapshot(nil, nil, time.Time{}))
	return p
}

func (p *Prices) Store(s *Snapshot) { p.current.Store(s) }

func (p *Prices) Snapshot() *Snapshot { return p.current.Load() }

func (p *Prices) Quote(symbol string) (Quote, bool) {
	return p.current.Load().Quote(symbol)
}
