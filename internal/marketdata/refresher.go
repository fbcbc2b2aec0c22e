package marketdata

import (
	"context"
	"time"

	"levtrade/internal/metrics"

	"go.uber.org/zap"
)

type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Refresher keeps Prices current from a Loader.
type Refresher struct {
	src    Loader
	prices *Prices
	log    *zap.Logger
}

func NewRefresher(src Loader, prices *Prices, log *zap.Logger) *Refresher {
	return &Refresher{src: src, prices: prices, log: log.Named("quotes")}
}

// Refresh swaps in a fresh snapshot. On failure the previous one stays.
func (r *Refresher) Refresh(ctx context.Context) error {
	snap, err := r.src.Load(ctx)
	if err != nil {
		metrics.QuoteRefreshErrors.Inc()
		return err
	}
	r.prices.Store(snap)
	metrics.QuoteSnapshotSize.Set(float64(snap.Len()))
	return nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn("initial quote load failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.log.Warn("quote refresh failed, keeping previous snapshot",
					zap.Error(err), zap.Time("snapshot_at", r.prices.Snapshot().LoadedAt()))
			}
		}
	}
}
