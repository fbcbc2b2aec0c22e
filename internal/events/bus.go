package events

import (
	"context"
	"sync"
)

// Bus fans events out to in-process subscribers such as stream clients.
// Slow subscribers miss events rather than block the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan PositionEvent]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan PositionEvent]struct{})}
}

func (b *Bus) Subscribe() chan PositionEvent {
	ch := make(chan PositionEvent, 100)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan PositionEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(_ context.Context, evt PositionEvent) error {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.RUnlock()
	return nil
}
