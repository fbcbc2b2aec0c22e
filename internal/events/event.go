// Package events carries position lifecycle notifications out of the engine.
// Delivery is best-effort: publishing happens after commit and a failed
// publish never changes committed state.
package events

import (
	"context"
	"errors"
	"time"

	"levtrade/internal/model"

	"github.com/google/uuid"
)

type Type string

const (
	TypeOpened Type = "opened"
	TypeClosed Type = "closed"
	TypeBusted Type = "busted"
)

type PositionEvent struct {
	ID       string         `json:"id"`
	Type     Type           `json:"type"`
	Position model.Position `json:"position"`
	At       time.Time      `json:"at"`
}

func NewPositionEvent(typ Type, pos model.Position) PositionEvent {
	return PositionEvent{ID: uuid.NewString(), Type: typ, Position: pos, At: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, evt PositionEvent) error
}

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt PositionEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Publish(context.Context, PositionEvent) error { return nil }
