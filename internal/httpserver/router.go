package httpserver

import (
	"net/http"

	"levtrade/internal/auth"
	"levtrade/internal/health"
	"levtrade/internal/liquidation"
	"levtrade/internal/marketdata"
	"levtrade/internal/metrics"
	"levtrade/internal/positions"
	"levtrade/internal/transfers"
	"levtrade/internal/users"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	HealthHandler      *health.Handler
	UsersHandler       *users.Handler
	PositionsHandler   *positions.Handler
	MarketHandler      *marketdata.Handler
	LiquidationHandler *liquidation.Handler
	TransfersHandler   *transfers.Handler
	AuthHandler        *auth.Handler
	WSHandler          http.Handler
	RateLimiter        *RateLimiter
	InternalToken      string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(Instrument)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+TradingKeyHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware)
	}

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if d.WSHandler != nil {
			r.Get("/ws", d.WSHandler.ServeHTTP)
		}
		r.Group(func(r chi.Router) {
			r.Use(InternalAuth(d.InternalToken))

			r.Post("/auth/stream-token", d.AuthHandler.StreamToken)

			r.Route("/user", func(r chi.Router) {
				r.Post("/info", d.UsersHandler.Info)
				r.Post("/withdraw", d.UsersHandler.Withdraw)
			})

			r.Route("/trading", func(r chi.Router) {
				r.Post("/open", d.PositionsHandler.Open)
				r.Post("/close", d.PositionsHandler.Close)
				r.Post("/open-positions", d.PositionsHandler.OpenPositions)
				r.Post("/closed-positions", d.PositionsHandler.ClosedPositions)
				r.Get("/assets", d.MarketHandler.Assets)
				r.Post("/check-bust", d.LiquidationHandler.CheckBust)
			})

			r.Route("/transfers", func(r chi.Router) {
				r.Post("/deposits", d.TransfersHandler.RecordDeposit)
				r.Post("/deposits/{id}/settle", d.TransfersHandler.SettleDeposit)
				r.Get("/withdrawals/pending", d.TransfersHandler.PendingWithdrawals)
				r.Post("/withdrawals/{id}/approve", d.TransfersHandler.ApproveWithdrawal)
				r.Post("/withdrawals/{id}/complete", d.TransfersHandler.CompleteWithdrawal)
				r.Post("/withdrawals/{id}/fail", d.TransfersHandler.FailWithdrawal)
			})
		})
	})
	return r
}
