package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes each event as JSON on "<prefix>.<type>".
type NATSPublisher struct {
	conn   Conn
	prefix string
}

func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "positions"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Subject(t Type) string {
	return p.prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(_ context.Context, evt PositionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}
	if err := p.conn.Publish(p.Subject(evt.Type), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", evt.ID, err)
	}
	return nil
}

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	log = log.Named("nats")
	return nats.Connect(url,
		nats.Name("levtrade"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
}
