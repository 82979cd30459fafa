package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/cache/redis"
	"github.com/alanyoungcy/bondtrader/internal/config"
	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/events"
	"github.com/alanyoungcy/bondtrader/internal/feed"
	"github.com/alanyoungcy/bondtrader/internal/historical"
	"github.com/alanyoungcy/bondtrader/internal/notify"
	"github.com/alanyoungcy/bondtrader/internal/service"
	"github.com/alanyoungcy/bondtrader/internal/store/postgres"
)

// GUIFile is the display sink written under the output directory.
const GUIFile = "gui.txt"

// Desk is the assembled service graph.
type Desk struct {
	Pricing       *service.PricingService
	AlgoStreaming *service.AlgoStreamingService
	Streaming     *service.StreamingService
	GUI           *service.GUIService
	MarketData    *service.MarketDataService
	AlgoExecution *service.AlgoExecutionService
	Execution     *service.ExecutionService
	TradeBooking  *service.TradeBookingService
	Positions     *service.PositionService
	Risk          *service.RiskService
	Inquiries     *service.InquiryService

	HistPosition  *historical.Service[domain.Position]
	HistRisk      *historical.Service[domain.PV01[domain.Bond]]
	HistExecution *historical.Service[domain.ExecutionOrder]
	HistStreaming *historical.Service[domain.PriceStream]
	HistInquiry   *historical.Service[domain.Inquiry]

	// Readers in feed order: prices, trades, market data, inquiries.
	Readers []feed.Reader

	venue domain.Market
	deps  *Dependencies
	mu    sync.Mutex
	stats map[string]feed.Stats
	done  bool
}

// DeskOptions are the parts of the configuration BuildDesk needs.
type DeskOptions struct {
	Desk config.DeskConfig
	// Emitter receives desk events. Nil disables event fan-out.
	Emitter events.Emitter
	// Now replaces the clock for history timestamps and throttling.
	Now func() time.Time
}

// BuildDesk constructs every service and then links the listeners. Core
// listeners are attached first so the synchronous chain runs in the same
// order regardless of which infrastructure is present.
func BuildDesk(opts DeskOptions, deps *Dependencies, logger *slog.Logger) (*Desk, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	venue, err := domain.ParseMarket(opts.Desk.Venue)
	if err != nil {
		return nil, fmt.Errorf("app: desk venue: %w", err)
	}
	files, err := historical.NewFileSink(opts.Desk.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	sinks := []historical.Sink{files}
	if deps.HistoryStore != nil {
		sinks = append(sinks, historical.NewStoreSink(deps.HistoryStore))
	}
	ref := deps.Refdata
	with := func(name string) *slog.Logger { return logger.With(slog.String("component", name)) }

	// Phase 1: construct.
	d := &Desk{
		Pricing:       service.NewPricingService(with("pricing_service")),
		AlgoStreaming: service.NewAlgoStreamingService(with("algo_streaming_service")),
		Streaming:     service.NewStreamingService(with("streaming_service")),
		GUI:           service.NewGUIService(opts.Desk.GUIThrottle.Duration, now, with("gui_service")),
		MarketData:    service.NewMarketDataService(opts.Desk.BookDepth, with("market_data_service")),
		AlgoExecution: service.NewAlgoExecutionService(service.AlgoExecutionConfig{
			Spread: opts.Desk.ExecutionSpreadPoints(),
			Venue:  venue,
		}, with("algo_execution_service")),
		Execution:    service.NewExecutionService(with("execution_service")),
		TradeBooking: service.NewTradeBookingService(with("trade_booking_service")),
		Positions:    service.NewPositionService(with("position_service")),
		Risk:         service.NewRiskService(ref, with("risk_service")),
		Inquiries:    service.NewInquiryService(opts.Desk.QuotePrice, with("inquiry_service")),

		HistPosition:  historical.New[domain.Position](domain.CategoryPosition, with("historical"), sinks...).WithClock(now),
		HistRisk:      historical.New[domain.PV01[domain.Bond]](domain.CategoryRisk, with("historical"), sinks...).WithClock(now),
		HistExecution: historical.New[domain.ExecutionOrder](domain.CategoryExecution, with("historical"), sinks...).WithClock(now),
		HistStreaming: historical.New[domain.PriceStream](domain.CategoryStreaming, with("historical"), sinks...).WithClock(now),
		HistInquiry:   historical.New[domain.Inquiry](domain.CategoryInquiry, with("historical"), sinks...).WithClock(now),

		venue: venue,
		deps:  deps,
		stats: make(map[string]feed.Stats),
	}

	priceConn := feed.NewPriceConnector(d.Pricing, ref, with("price_feed"))
	tradeConn := feed.NewTradeConnector(d.TradeBooking, ref, with("trade_feed"))
	bookConn := feed.NewMarketDataConnector(d.MarketData, ref, with("market_data_feed"))
	inquiryConn := feed.NewInquiryConnector(d.Inquiries, ref, with("inquiry_feed"))
	d.Inquiries.SetConnector(inquiryConn)
	d.Readers = []feed.Reader{priceConn, tradeConn, bookConn, inquiryConn}

	d.GUI.AddConnector(feed.NewFileConnector[domain.Price](filepath.Join(opts.Desk.OutputDir, GUIFile), now))

	// Phase 2: link the core chain.
	d.Pricing.AddListener(d.AlgoStreaming.PriceListener())
	d.Pricing.AddListener(d.GUI.PriceListener())
	d.AlgoStreaming.AddListener(d.Streaming.AlgoStreamListener())
	d.Streaming.AddListener(d.HistStreaming)

	d.MarketData.AddListener(d.AlgoExecution.BookListener())
	d.AlgoExecution.AddListener(d.Execution.AlgoListener())
	d.Execution.AddListener(d.TradeBooking.ExecutionListener())
	d.Execution.AddListener(d.HistExecution)

	d.TradeBooking.AddListener(d.Positions.TradeListener())
	d.Positions.AddListener(d.Risk.PositionListener())
	d.Positions.AddListener(d.HistPosition)
	d.Risk.AddListener(d.HistRisk)

	d.Inquiries.AddListener(d.HistInquiry)

	// Infrastructure listeners hang off the end of each chain.
	if deps.BookCache != nil {
		d.MarketData.AddListener(redis.BookListener(deps.BookCache, d.MarketData, with("book_cache")))
	}
	if deps.QuoteCache != nil {
		d.Streaming.AddListener(redis.QuoteListener(deps.QuoteCache, now, with("quote_cache")))
	}
	if deps.TradeStore != nil {
		d.TradeBooking.AddListener(postgres.TradeListener(deps.TradeStore, with("trade_store")))
	}
	if deps.PositionStore != nil {
		d.Positions.AddListener(postgres.PositionListener(deps.PositionStore, with("position_store")))
	}
	if e := opts.Emitter; e != nil {
		evLog := with("events")
		d.Execution.AddListener(events.Listener[domain.ExecutionOrder](e, domain.CategoryExecution, now, evLog))
		d.TradeBooking.AddListener(events.Listener[domain.Trade](e, domain.CategoryTrade, now, evLog))
		d.Positions.AddListener(events.Listener[domain.Position](e, domain.CategoryPosition, now, evLog))
		d.Risk.AddListener(events.Listener[domain.PV01[domain.Bond]](e, domain.CategoryRisk, now, evLog))
		d.Streaming.AddListener(events.Listener[domain.PriceStream](e, domain.CategoryStreaming, now, evLog))
		d.Inquiries.AddListener(events.Listener[domain.Inquiry](e, domain.CategoryInquiry, now, evLog))
		d.MarketData.AddListener(events.Listener[domain.OrderBook](e, domain.CategoryBook, now, evLog))
		d.GUI.AddConnector(feed.FuncConnector[domain.Price](func(ctx context.Context, p domain.Price) error {
			return e.Emit(ctx, domain.NewDeskEvent(domain.CategoryGUI, p, now()))
		}))
	}
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		alerts := notify.NewAlerts(deps.Notifier, string(venue), with("alerts"))
		d.Execution.AddListener(alerts.ExecutionListener())
		d.Inquiries.AddListener(alerts.InquiryListener())
		d.Inquiries.OnReject(alerts.InquiryRejected)
	}

	return d, nil
}

// FeedFile pairs a reader with the file it replays.
type FeedFile struct {
	Reader feed.Reader
	Path   string
}

// FeedFiles maps the desk's readers onto the configured input paths.
func (d *Desk) FeedFiles(cfg config.DeskConfig) []FeedFile {
	paths := map[string]string{
		feed.FeedPrices:     cfg.PricesFile,
		feed.FeedTrades:     cfg.TradesFile,
		feed.FeedMarketData: cfg.MarketDataFile,
		feed.FeedInquiries:  cfg.InquiriesFile,
	}
	out := make([]FeedFile, 0, len(d.Readers))
	for _, r := range d.Readers {
		out = append(out, FeedFile{Reader: r, Path: paths[r.Name()]})
	}
	return out
}

// RunFeeds replays each file in order, stopping at the first processing
// error. When a lock manager is present the replay holds the feeds lock.
func (d *Desk) RunFeeds(ctx context.Context, files []FeedFile, lockTTL time.Duration, logger *slog.Logger) error {
	if d.deps.LockManager != nil {
		unlock, err := d.deps.LockManager.Acquire(ctx, redis.FeedsLock, lockTTL)
		if err != nil {
			return fmt.Errorf("app: feeds lock: %w", err)
		}
		defer unlock()
	}

	for _, f := range files {
		start := time.Now()
		st, err := readFile(ctx, f)
		d.recordStats(st)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "app: feed complete",
			slog.String("feed", f.Reader.Name()),
			slog.String("path", f.Path),
			slog.Int("records", st.Records),
			slog.Int("skipped", st.Skipped),
			slog.Duration("elapsed", time.Since(start)),
		)
	}

	d.mu.Lock()
	d.done = true
	d.mu.Unlock()
	return nil
}

func readFile(ctx context.Context, f FeedFile) (feed.Stats, error) {
	st := feed.Stats{Feed: f.Reader.Name()}
	fh, err := os.Open(f.Path)
	if err != nil {
		return st, fmt.Errorf("app: open %s feed: %w", f.Reader.Name(), err)
	}
	defer fh.Close()
	return f.Reader.Read(ctx, fh)
}

func (d *Desk) recordStats(st feed.Stats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats[st.Feed] = st
}

// Status summarises the desk for /api/status and the dashboard.
func (d *Desk) Status() domain.DeskStatus {
	d.mu.Lock()
	feeds := make(map[string]string, len(d.stats))
	for name, st := range d.stats {
		feeds[name] = fmt.Sprintf("records=%d skipped=%d", st.Records, st.Skipped)
	}
	done := d.done
	d.mu.Unlock()

	return domain.DeskStatus{
		FeedsComplete:   done,
		Venue:           string(d.venue),
		Products:        len(d.deps.Refdata.Bonds()),
		Positions:       d.Positions.Len(),
		Inquiries:       d.Inquiries.Len(),
		ExecutionsFired: d.AlgoExecution.Executions(),
		Infrastructure:  d.deps.Infrastructure(),
		Feeds:           feeds,
	}
}
