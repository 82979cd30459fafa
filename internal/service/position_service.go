package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// PositionService nets booked trades into per-book positions.
type PositionService struct {
	*soa.Store[string, domain.Position]
	logger *slog.Logger
}

var _ soa.Service[string, domain.Position] = (*PositionService)(nil)

// NewPositionService creates a PositionService.
func NewPositionService(logger *slog.Logger) *PositionService {
	return &PositionService{
		Store:  soa.NewStore(domain.Position.Key),
		logger: logger,
	}
}

// OnMessage stores a position as given, without notifying.
func (s *PositionService) OnMessage(_ context.Context, pos domain.Position) error {
	s.Put(pos.Clone())
	return nil
}

// AddTrade applies a trade to the product's position and notifies listeners.
// The new trade's delta goes into a fresh position first, then every book of
// the previous position is folded in.
func (s *PositionService) AddTrade(ctx context.Context, trade domain.Trade) error {
	merged := s.Update(trade.Product.ProductID(), func(prev domain.Position, _ bool) domain.Position {
		next := domain.NewPosition(trade.Product)
		next.Add(trade.Book, trade.SignedQuantity())
		for book, qty := range prev.Books {
			next.Add(book, qty)
		}
		return next
	})

	out := merged.Clone()
	telemetry.PositionAggregate.WithLabelValues(out.Key()).Set(float64(out.Aggregate()))
	s.logger.DebugContext(ctx, "position_service: position updated",
		slog.String("product", out.Key()),
		slog.String("book", trade.Book),
		slog.Int64("aggregate", out.Aggregate()),
	)
	return s.NotifyAdd(ctx, out)
}

// Positions returns copies of every position ordered by product id.
func (s *PositionService) Positions() []domain.Position {
	keys := s.Keys(func(a, b string) bool { return strings.Compare(a, b) < 0 })
	out := make([]domain.Position, 0, len(keys))
	for _, k := range keys {
		if p, ok := s.Lookup(k); ok {
			out = append(out, p.Clone())
		}
	}
	return out
}

// TradeListener feeds booked trades into AddTrade.
func (s *PositionService) TradeListener() soa.Listener[domain.Trade] {
	return soa.OnAdd(s.AddTrade)
}
