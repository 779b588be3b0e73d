// Package events delivers committed domain events to subscribers.
package events

import (
	"context"

	"blindbox/internal/domain"
)

// Publisher receives events after the transaction that produced them committed.
// Implementations must not block the caller for long and must not fail it.
type Publisher interface {
	Publish(ctx context.Context, evts ...domain.Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...domain.Event) {}

// Multi fans out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evts ...domain.Event) {
	if len(evts) == 0 {
		return
	}
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, evts...)
		}
	}
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, evts ...domain.Event)

func (f Func) Publish(ctx context.Context, evts ...domain.Event) { f(ctx, evts...) }
