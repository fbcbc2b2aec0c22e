package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ok(context.Context) error { return nil }

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Pinger
		status int
		want   string
	}{
		{"all up", map[string]Pinger{"database": pingFunc(ok), "redis": pingFunc(ok)}, http.StatusOK, "ok"},
		{"redis down", map[string]Pinger{
			"database": pingFunc(ok),
			"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, http.StatusServiceUnavailable, "degraded"},
		{"unset", map[string]Pinger{"database": nil}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(time.Now().Add(-time.Minute), tc.checks)
			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)

			var body readinessResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.want, body.Status)
			assert.Len(t, body.Dependencies, len(tc.checks))
			assert.GreaterOrEqual(t, body.UptimeSec, int64(59))
		})
	}
}

func TestReadyPingTimesOut(t *testing.T) {
	h := NewHandler(time.Now(), map[string]Pinger{"database": pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})})
	h.timeout = 10 * time.Millisecond
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLive(t *testing.T) {
	h := NewHandler(time.Time{}, nil)
	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
