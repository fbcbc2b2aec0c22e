package marketdata

import (
	"net/http"
	"time"

	"levtrade/internal/httputil"
)

type Handler struct {
	prices *Prices
	clock  Clock
}

func NewHandler(prices *Prices, clock Clock) *Handler {
	return &Handler{prices: prices, clock: clock}
}

type stockMarket struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason,omitempty"`
}

type assetsResponse struct {
	Assets
	StockMarket stockMarket `json:"stock_market"`
	LoadedAt    time.Time   `json:"loaded_at"`
}

// Assets lists tradeable symbols from the current snapshot.
func (h *Handler) Assets(w http.ResponseWriter, r *http.Request) {
	snap := h.prices.Snapshot()
	open, reason := h.clock.IsMarketOpen()
	httputil.WriteSuccess(w, assetsResponse{
		Assets:      snap.List(),
		StockMarket: stockMarket{Open: open, Reason: reason},
		LoadedAt:    snap.LoadedAt(),
	})
}
