// Package liquidation marks live positions busted once the market reaches
// their bust price.
package liquidation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"levtrade/internal/db"
	"levtrade/internal/events"
	"levtrade/internal/metrics"
	"levtrade/internal/model"
	"levtrade/internal/positions"
	"levtrade/internal/pricing"
	"levtrade/internal/types"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

type Repository interface {
	ListLive(ctx context.Context, q db.DBTX) ([]model.Position, error)
	Settle(ctx context.Context, q db.DBTX, id int64, st positions.Settlement) (bool, error)
}

type Scanner struct {
	repo   Repository
	quotes positions.Quotes
	events events.Publisher
	pool   *ants.Pool
	log    *zap.Logger
}

func NewScanner(repo Repository, quotes positions.Quotes, pub events.Publisher, workers int, log *zap.Logger) (*Scanner, error) {
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("liquidation pool: %w", err)
	}
	if pub == nil {
		pub = events.Discard{}
	}
	return &Scanner{repo: repo, quotes: quotes, events: pub, pool: pool, log: log.Named("liquidation")}, nil
}

func (s *Scanner) Close() {
	s.pool.Release()
}

type Result struct {
	Checked int `json:"checked"`
	Busted  int `json:"busted"`
	Skipped int `json:"skipped"`
}

// Sweep checks every live position once. Positions without a quote are
// skipped. Losing a race against a concurrent close is not an error.
func (s *Scanner) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() { metrics.LiquidationSweepSeconds.Observe(time.Since(start).Seconds()) }()

	live, err := s.repo.ListLive(ctx, nil)
	if err != nil {
		return Result{}, err
	}

	var (
		wg      sync.WaitGroup
		busted  atomic.Int64
		skipped atomic.Int64
		mu      sync.Mutex
		errs    []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for _, p := range live {
		p := p
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			hit, ok, err := s.check(ctx, p)
			switch {
			case err != nil:
				fail(err)
			case !ok:
				skipped.Add(1)
			case hit:
				busted.Add(1)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit position %d: %w", p.ID, err))
		}
	}
	wg.Wait()

	res := Result{Checked: len(live), Busted: int(busted.Load()), Skipped: int(skipped.Load())}
	if res.Busted > 0 {
		s.log.Info("liquidation sweep", zap.Int("checked", res.Checked), zap.Int("busted", res.Busted), zap.Int("skipped", res.Skipped))
	}
	return res, errors.Join(errs...)
}

// check reports whether p was busted by this call and whether it had a quote.
func (s *Scanner) check(ctx context.Context, p model.Position) (busted, quoted bool, err error) {
	quote, ok := s.quotes.Quote(p.Asset)
	if !ok {
		return false, false, nil
	}
	hit, err := pricing.Breached(p.Side, quote.Price, p.BustPrice)
	if err != nil {
		s.log.Error("breach check", zap.Error(err), zap.Int64("id", p.ID))
		return false, true, fmt.Errorf("position %d: %w", p.ID, err)
	}
	if !hit {
		return false, true, nil
	}

	// The whole stake is lost; it was debited at open, so no ledger call.
	settled, err := s.repo.Settle(ctx, nil, p.ID, positions.Settlement{
		Status:    types.PositionStatusBusted,
		ExitPrice: p.BustPrice,
		PnL:       p.Amount.Neg(),
	})
	if err != nil {
		return false, true, err
	}
	if !settled {
		s.log.Debug("position already settled", zap.Int64("id", p.ID))
		return false, true, nil
	}

	metrics.PositionsSettled.WithLabelValues(string(types.PositionStatusBusted)).Inc()
	exit, pnl := p.BustPrice, p.Amount.Neg()
	p.Status = types.PositionStatusBusted
	p.ExitPrice = &exit
	p.PnL = &pnl
	p.UpdatedAt = time.Now().UTC()
	if err := s.events.Publish(ctx, events.NewPositionEvent(events.TypeBusted, p)); err != nil {
		s.log.Warn("publish position event", zap.Error(err), zap.Int64("id", p.ID))
	}
	return true, true, nil
}

// Run sweeps on every tick until ctx is done.
func (s *Scanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("liquidation sweep failed", zap.Error(err))
			}
		}
	}
}
