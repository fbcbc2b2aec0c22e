package httpserver

import (
	"net/http"
	"strings"
	"time"

	"levtrade/internal/events"
	"levtrade/internal/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenParser resolves a stream token to the account address it was issued for.
type TokenParser interface {
	Parse(token string) (string, error)
}

// WSHandler streams the position events of one account.
type WSHandler struct {
	bus      *events.Bus
	tokens   TokenParser
	upgrader websocket.Upgrader
	log      *zap.Logger
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

func NewWSHandler(bus *events.Bus, tokens TokenParser, origin string, log *zap.Logger) *WSHandler {
	return &WSHandler{
		bus:    bus,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
		log: log.Named("ws"),
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if reqOrigin == "" {
		return true
	}
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	address, err := h.tokens.Parse(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Subscribe before the handshake completes so no event after it is missed.
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if !strings.EqualFold(evt.Position.Address, address) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				h.log.Debug("stream write", zap.Error(err), zap.String("address", address))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
