package health

import (
	"context"
	"net/http"
	"time"

	"levtrade/internal/httputil"
)

// Pinger is satisfied by *pgxpool.Pool and the quote source.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	checks    map[string]Pinger
	startedAt time.Time
	timeout   time.Duration
}

func NewHandler(startedAt time.Time, checks map[string]Pinger) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{checks: checks, startedAt: start, timeout: time.Second}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type dependencyStat struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                    `json:"status"`
	Timestamp    string                    `json:"timestamp"`
	UptimeSec    int64                     `json:"uptime_sec"`
	Uptime       string                    `json:"uptime"`
	Dependencies map[string]dependencyStat `json:"dependencies"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) ping(ctx context.Context, p Pinger) dependencyStat {
	if p == nil {
		return dependencyStat{Error: "not configured"}
	}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := p.Ping(pingCtx)
	cancel()
	stat := dependencyStat{PingMs: time.Since(start).Milliseconds(), Reachable: err == nil}
	if err != nil {
		stat.Error = err.Error()
	}
	return stat
}

// Live does not touch any dependency.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready pings every dependency and returns 503 when any is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	status := "ok"
	httpStatus := http.StatusOK
	deps := make(map[string]dependencyStat, len(h.checks))
	for name, p := range h.checks {
		stat := h.ping(r.Context(), p)
		if !stat.Reachable {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		deps[name] = stat
	}
	httputil.WriteJSON(w, httpStatus, readinessResponse{
		Status:       status,
		Timestamp:    now.Format(time.RFC3339),
		UptimeSec:    int64(uptime.Seconds()),
		Uptime:       uptime.String(),
		Dependencies: deps,
	})
}
