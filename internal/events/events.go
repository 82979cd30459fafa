// Package events fans desk records out to event sinks such as the signal bus
// and the dashboard hub.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// Emitter accepts desk events.
type Emitter interface {
	Emit(ctx context.Context, ev domain.DeskEvent) error
}

// EmitterFunc adapts a function into an Emitter.
type EmitterFunc func(ctx context.Context, ev domain.DeskEvent) error

func (f EmitterFunc) Emit(ctx context.Context, ev domain.DeskEvent) error { return f(ctx, ev) }

// Fanout emits to every member and returns the first error after trying all.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, ev domain.DeskEvent) error {
	var first error
	for _, e := range f {
		if err := e.Emit(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Listener wraps every added value in a DeskEvent of category cat and emits
// it. Emit failures are logged and never returned to the publishing service.
func Listener[V domain.Record](e Emitter, cat domain.EventCategory, now func() time.Time, logger *slog.Logger) soa.Listener[V] {
	if now == nil {
		now = time.Now
	}
	return soa.OnAdd(func(ctx context.Context, v V) error {
		ev := domain.NewDeskEvent(cat, v, now())
		if err := e.Emit(ctx, ev); err != nil {
			logger.WarnContext(ctx, "events: emit failed",
				slog.String("category", string(cat)),
				slog.String("key", ev.Key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}
