package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"levtrade/internal/httputil"
	"levtrade/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TradingKeyHeader carries the shared key of the bot and the reconciliation jobs.
const TradingKeyHeader = "X-Trading-Key"

func secureTokenEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func InternalAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get(TradingKeyHeader))
			if token == "" || !secureTokenEqual(provided, token) {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Envelope{Status: httputil.StatusFail, Error: "invalid trading key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Instrument counts requests by matched route pattern and status.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
