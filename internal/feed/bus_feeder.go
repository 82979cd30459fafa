package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// InputChannel is the bus channel carrying raw feed lines for a feed.
func InputChannel(feed string) string { return "desk:input:" + feed }

// BusFeeder subscribes to one input channel per reader and feeds every
// message payload, which may hold several lines, through that reader.
type BusFeeder struct {
	bus     domain.SignalBus
	readers []Reader
	logger  *slog.Logger
}

// NewBusFeeder creates a BusFeeder.
func NewBusFeeder(bus domain.SignalBus, logger *slog.Logger, readers ...Reader) *BusFeeder {
	return &BusFeeder{
		bus:     bus,
		readers: readers,
		logger:  logger.With(slog.String("component", "bus_feeder")),
	}
}

// Run blocks until ctx is done or a reader fails with a processing error.
func (f *BusFeeder) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range f.readers {
		ch, err := f.bus.Subscribe(ctx, InputChannel(r.Name()))
		if err != nil {
			return fmt.Errorf("feed: subscribe %s: %w", r.Name(), err)
		}
		g.Go(func() error { return f.consume(ctx, r, ch) })
	}
	f.logger.Info("bus feeder started", slog.Int("feeds", len(f.readers)))
	defer f.logger.Info("bus feeder stopped")
	return g.Wait()
}

func (f *BusFeeder) consume(ctx context.Context, r Reader, ch <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			st, err := r.Read(ctx, bytes.NewReader(data))
			if err != nil {
				return err
			}
			f.logger.Debug("bus feeder message handled",
				slog.String("feed", r.Name()),
				slog.Int("records", st.Records),
				slog.Int("skipped", st.Skipped),
				slog.Int("payload_len", len(data)),
			)
		}
	}
}
