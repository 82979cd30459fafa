// Package historical persists the output of desk services. Persistence is
// best effort: a failing sink is logged and counted, and the trading chain
// carries on.
package historical

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// Service keeps the last persisted value per key and writes every value
// to its sinks. It is also a Listener so it can hang off any service.
type Service[V domain.Record] struct {
	*soa.Store[string, V]
	category domain.EventCategory
	sinks    []Sink
	now      func() time.Time
	logger   *slog.Logger
}

var _ soa.Listener[domain.Position] = (*Service[domain.Position])(nil)

// New creates a historical service for one category.
func New[V domain.Record](cat domain.EventCategory, logger *slog.Logger, sinks ...Sink) *Service[V] {
	return &Service[V]{
		Store:    soa.NewStore(func(v V) string { return v.Key() }),
		category: cat,
		sinks:    sinks,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the timestamp source.
func (s *Service[V]) WithClock(now func() time.Time) *Service[V] {
	s.now = now
	return s
}

// AddSink attaches another sink after construction.
func (s *Service[V]) AddSink(sink Sink) { s.sinks = append(s.sinks, sink) }

func (s *Service[V]) Category() domain.EventCategory { return s.category }

// OnMessage stores v without persisting it.
func (s *Service[V]) OnMessage(_ context.Context, v V) error {
	s.Put(v)
	return nil
}

// PersistData stores v under persistKey and writes it to every sink.
func (s *Service[V]) PersistData(ctx context.Context, persistKey string, v V) {
	s.Update(persistKey, func(V, bool) V { return v })

	line := Line{Category: s.category, Key: persistKey, Fields: v.Fields(), At: s.now()}
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, line); err != nil {
			telemetry.HistoricalFailures.WithLabelValues(string(s.category), sink.Name()).Inc()
			s.logger.WarnContext(ctx, "historical: write skipped",
				slog.String("category", string(s.category)),
				slog.String("sink", sink.Name()),
				slog.String("key", persistKey),
				slog.String("error", err.Error()),
			)
			continue
		}
		telemetry.HistoricalWrites.WithLabelValues(string(s.category), sink.Name()).Inc()
	}
}

func (s *Service[V]) ProcessAdd(ctx context.Context, v V) error {
	s.PersistData(ctx, v.Key(), v)
	return nil
}

func (s *Service[V]) ProcessRemove(context.Context, V) error { return nil }

func (s *Service[V]) ProcessUpdate(context.Context, V) error { return nil }
