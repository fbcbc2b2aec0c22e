// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levtrade_positions_opened_total",
		Help: "Positions opened, by asset class and side.",
	}, []string{"asset_type", "side"})

	PositionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levtrade_positions_settled_total",
		Help: "Positions moved out of live, by final status.",
	}, []string{"status"})

	OpenRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levtrade_open_rejected_total",
		Help: "Rejected open requests, by error code.",
	}, []string{"code"})

	LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levtrade_ledger_operations_total",
		Help: "Balance mutations, by operation and result.",
	}, []string{"op", "result"})

	LiquidationSweepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "levtrade_liquidation_sweep_seconds",
		Help:    "Duration of one liquidation sweep.",
		Buckets: prometheus.DefBuckets,
	})

	QuoteRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "levtrade_quote_refresh_errors_total",
		Help: "Failed quote snapshot refreshes.",
	})

	QuoteSnapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "levtrade_quote_snapshot_assets",
		Help: "Assets in the current quote snapshot.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levtrade_http_requests_total",
		Help: "HTTP requests, by route pattern and status code.",
	}, []string{"route", "status"})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "levtrade_ws_clients",
		Help: "Connected event stream clients.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
