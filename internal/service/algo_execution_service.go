package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// DefaultExecutionSpread is the widest spread that still triggers an
// execution: 1/128 of a point.
const DefaultExecutionSpread = 1.0 / 128.0

// AlgoExecution is an execution decision together with its target venue.
type AlgoExecution struct {
	Order domain.ExecutionOrder `json:"order"`
	Venue domain.Market         `json:"venue"`
}

func (a AlgoExecution) Key() string { return a.Order.Key() }

// AlgoExecutionConfig tunes the execution algorithm.
type AlgoExecutionConfig struct {
	// Spread is the trigger threshold. Zero means DefaultExecutionSpread.
	Spread float64
	Venue  domain.Market
	// NewOrderID overrides order id generation, mainly for tests.
	NewOrderID func() string
}

// AlgoExecutionService crosses the spread whenever a book tightens to the
// threshold, alternating between hitting the bid and lifting the offer.
type AlgoExecutionService struct {
	*soa.Store[string, AlgoExecution]
	spread     float64
	venue      domain.Market
	newOrderID func() string
	logger     *slog.Logger

	mu      sync.Mutex
	counter int64
}

var _ soa.Service[string, AlgoExecution] = (*AlgoExecutionService)(nil)

// NewAlgoExecutionService creates an AlgoExecutionService.
func NewAlgoExecutionService(cfg AlgoExecutionConfig, logger *slog.Logger) *AlgoExecutionService {
	if cfg.Spread <= 0 {
		cfg.Spread = DefaultExecutionSpread
	}
	if cfg.Venue == "" {
		cfg.Venue = domain.MarketBrokerTec
	}
	if cfg.NewOrderID == nil {
		cfg.NewOrderID = uuid.NewString
	}
	return &AlgoExecutionService{
		Store:      soa.NewStore(AlgoExecution.Key),
		spread:     cfg.Spread,
		venue:      cfg.Venue,
		newOrderID: cfg.NewOrderID,
		logger:     logger,
	}
}

// OnMessage stores an externally produced execution without notifying.
func (s *AlgoExecutionService) OnMessage(_ context.Context, a AlgoExecution) error {
	s.Put(a)
	return nil
}

// Executions is the number of executions fired so far.
func (s *AlgoExecutionService) Executions() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Execute evaluates a book and, if the spread is tight enough, emits an
// execution to listeners.
func (s *AlgoExecutionService) Execute(ctx context.Context, book domain.OrderBook) error {
	bo, err := BestBidOffer(book)
	if errors.Is(err, domain.ErrEmptyBook) {
		s.logger.DebugContext(ctx, "algo_execution_service: skip empty book",
			slog.String("product", book.Key()),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("algo_execution_service: best bid offer: %w", err)
	}
	if bo.Spread() > s.spread {
		return nil
	}

	s.mu.Lock()
	n := s.counter
	s.counter++
	s.mu.Unlock()

	top := bo.Bid
	side := domain.PricingSideBid
	if n%2 == 1 {
		top = bo.Offer
		side = domain.PricingSideOffer
	}

	a := AlgoExecution{
		Order: domain.ExecutionOrder{
			Product:         book.Product,
			Side:            side,
			OrderID:         s.newOrderID(),
			OrderType:       domain.OrderTypeMarket,
			Price:           top.Price,
			VisibleQuantity: top.Quantity,
		},
		Venue: s.venue,
	}
	s.Put(a)

	s.logger.InfoContext(ctx, "algo_execution_service: execution fired",
		slog.String("product", book.Key()),
		slog.String("side", side.String()),
		slog.Float64("price", top.Price),
		slog.Int64("quantity", top.Quantity),
		slog.Int64("sequence", n),
	)
	return s.NotifyAdd(ctx, a)
}

// BookListener adapts Execute to a MarketDataService listener.
func (s *AlgoExecutionService) BookListener() soa.Listener[domain.OrderBook] {
	return soa.OnAdd(s.Execute)
}
