package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/bondtrader/internal/cache/redis"
	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/events"
	"github.com/alanyoungcy/bondtrader/internal/feed"
	"github.com/alanyoungcy/bondtrader/internal/server"
	"github.com/alanyoungcy/bondtrader/internal/server/handler"
	"github.com/alanyoungcy/bondtrader/internal/server/ws"
	"github.com/alanyoungcy/bondtrader/internal/simulate"
)

// RunMode replays the feeds once and returns.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")

	var emitter events.Emitter
	if deps.SignalBus != nil {
		emitter = redis.NewEventPublisher(deps.SignalBus)
	}
	desk, err := BuildDesk(DeskOptions{Desk: a.cfg.Desk, Emitter: emitter}, deps, a.logger)
	if err != nil {
		return err
	}
	if err := desk.RunFeeds(ctx, desk.FeedFiles(a.cfg.Desk), a.cfg.Desk.FeedsLockTTL.Duration, a.logger); err != nil {
		return err
	}

	st := desk.Status()
	a.logger.InfoContext(ctx, "run mode complete",
		slog.Int("positions", st.Positions),
		slog.Int("inquiries", st.Inquiries),
		slog.Int64("executions", st.ExecutionsFired),
		slog.String("output_dir", a.cfg.Desk.OutputDir),
	)
	return nil
}

// ServeMode replays the feeds and then keeps the HTTP API and dashboard hub
// up until ctx is cancelled. A feeds lock held elsewhere skips the replay.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	var desk *Desk
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
		Status: func() domain.DeskStatus {
			st := desk.Status()
			st.Mode = a.cfg.Mode
			return st
		},
	})

	// With a bus the hub bridges the Redis channels; without one it is fed
	// in process.
	var emitter events.Emitter = hub
	if deps.SignalBus != nil {
		emitter = redis.NewEventPublisher(deps.SignalBus)
	}
	desk, err := BuildDesk(DeskOptions{Desk: a.cfg.Desk, Emitter: emitter}, deps, a.logger)
	if err != nil {
		return err
	}

	g.Go(func() error { return hub.Run(ctx) })

	if a.cfg.Server.Enabled {
		srv := a.newHTTPServer(desk, hub, deps)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		err := desk.RunFeeds(ctx, desk.FeedFiles(a.cfg.Desk), a.cfg.Desk.FeedsLockTTL.Duration, a.logger)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.WarnContext(ctx, "serve mode: another desk holds the feeds lock, skipping replay")
			return nil
		}
		return err
	})

	if deps.SignalBus != nil && a.cfg.Redis.BusFeeds {
		feeder := feed.NewBusFeeder(deps.SignalBus, a.logger, desk.Readers...)
		g.Go(func() error { return feeder.Run(ctx) })
	}

	return g.Wait()
}

func (a *App) newHTTPServer(desk *Desk, hub *ws.Hub, deps *Dependencies) *server.Server {
	logger := a.logger
	status := func() domain.DeskStatus {
		st := desk.Status()
		st.Mode = a.cfg.Mode
		return st
	}

	var archives handler.ArchiveBrowser
	if deps.ArchiveReader != nil {
		archives = deps.ArchiveReader
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Checks, logger),
		Status:    handler.NewStatusHandler(status),
		Positions: handler.NewPositionHandler(desk.Positions, logger),
		Risk:      handler.NewRiskHandler(desk.Risk, logger),
		Books:     handler.NewBookHandler(desk.MarketData, logger),
		Quotes:    handler.NewQuoteHandler(deps.QuoteCache, desk.Streaming, logger),
		Inquiries: handler.NewInquiryHandler(desk.Inquiries, logger),
		Archives:  handler.NewArchiveHandler(archives, deps.BlobPrefix, logger),
	}

	return server.NewServer(server.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, logger)
}

// GenerateMode writes synthetic feed files.
func (a *App) GenerateMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting generate mode", slog.String("dir", a.cfg.Simulate.Dir))
	gen := simulate.New(simulate.Config{
		Dir:                 a.cfg.Simulate.Dir,
		Products:            a.cfg.Simulate.Products,
		PricesPerProduct:    a.cfg.Simulate.PricesPerProduct,
		BooksPerProduct:     a.cfg.Simulate.BooksPerProduct,
		TradesPerProduct:    a.cfg.Simulate.TradesPerProduct,
		InquiriesPerProduct: a.cfg.Simulate.InquiriesPerProduct,
		BookDepth:           a.cfg.Desk.BookDepth,
	}, a.logger)
	paths, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "generate mode complete", slog.Int("files", len(paths)))
	return nil
}

// ArchiveMode uploads the history files in the output directory.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return errors.New("app: archive mode requires s3")
	}
	day := time.Now().UTC()
	if a.cfg.S3.ArchiveDay != "" {
		d, err := time.Parse(time.DateOnly, a.cfg.S3.ArchiveDay)
		if err != nil {
			return fmt.Errorf("app: archive day: %w", err)
		}
		day = d
	}

	a.logger.InfoContext(ctx, "starting archive mode",
		slog.String("dir", a.cfg.Desk.OutputDir),
		slog.String("day", day.Format(time.DateOnly)),
	)
	files, err := deps.Archiver.ArchiveHistory(ctx, a.cfg.Desk.OutputDir, day)
	if err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	var total int64
	unchanged := 0
	for _, f := range files {
		total += f.Size
		if f.Unchanged {
			unchanged++
		}
	}
	a.logger.InfoContext(ctx, "archive mode complete",
		slog.Int("files", len(files)),
		slog.Int("unchanged", unchanged),
		slog.Int64("bytes", total),
	)
	return nil
}
