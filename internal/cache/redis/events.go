package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// EventPublisher writes desk events to the signal bus, once on the live
// channel and once on the category stream. It satisfies events.Emitter.
type EventPublisher struct {
	bus domain.SignalBus
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(bus domain.SignalBus) *EventPublisher {
	return &EventPublisher{bus: bus}
}

// Emit encodes ev as JSON and publishes it.
func (p *EventPublisher) Emit(ctx context.Context, ev domain.DeskEvent) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := p.bus.Publish(ctx, domain.EventChannel(ev.Category), payload); err != nil {
		return err
	}
	return p.bus.StreamAppend(ctx, domain.EventStream(ev.Category), payload)
}

// EncodeEvent marshals a desk event for the bus.
func EncodeEvent(ev domain.DeskEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("redis: encode %s event %s: %w", ev.Category, ev.Key, err)
	}
	return b, nil
}

// DecodeEvent is the inverse of EncodeEvent. Data comes back as a generic map.
func DecodeEvent(b []byte) (domain.DeskEvent, error) {
	var ev domain.DeskEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return domain.DeskEvent{}, fmt.Errorf("redis: decode event: %w", err)
	}
	return ev, nil
}
