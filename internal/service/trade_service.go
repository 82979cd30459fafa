package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// TradeBooker books confirmed fills and republishes them.
type TradeBooker interface {
	soa.Service[string, domain.Trade]
	BookTrade(ctx context.Context, trade domain.Trade) error
}

// Books are the desk's trading books, cycled for algo fills.
var Books = []string{"TRSY1", "TRSY2", "TRSY3"}

// TradeBookingService is the default TradeBooker.
type TradeBookingService struct {
	*soa.Store[string, domain.Trade]
	logger *slog.Logger

	mu      sync.Mutex
	counter int
}

var _ TradeBooker = (*TradeBookingService)(nil)

// NewTradeBookingService creates a TradeBookingService.
func NewTradeBookingService(logger *slog.Logger) *TradeBookingService {
	return &TradeBookingService{
		Store:  soa.NewStore(domain.Trade.Key),
		logger: logger,
	}
}

// OnMessage stores the trade by trade id without notifying.
func (s *TradeBookingService) OnMessage(_ context.Context, trade domain.Trade) error {
	s.Put(trade)
	return nil
}

// BookTrade stores the trade and notifies listeners.
func (s *TradeBookingService) BookTrade(ctx context.Context, trade domain.Trade) error {
	s.Put(trade)
	telemetry.TradesBooked.WithLabelValues(trade.Book).Inc()
	s.logger.DebugContext(ctx, "trade_booking_service: trade booked",
		slog.String("trade_id", trade.TradeID),
		slog.String("product", trade.Product.ProductID()),
		slog.String("book", trade.Book),
		slog.Int64("quantity", trade.SignedQuantity()),
	)
	return s.NotifyAdd(ctx, trade)
}

func (s *TradeBookingService) nextBook() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return Books[s.counter%len(Books)]
}

// TradeFromExecution converts a confirmed execution into a trade on book.
// Hitting the bid is a sale and lifting the offer is a purchase.
func TradeFromExecution(order domain.ExecutionOrder, book string) domain.Trade {
	side := domain.SideBuy
	if order.Side == domain.PricingSideBid {
		side = domain.SideSell
	}
	return domain.Trade{
		Product:  order.Product,
		TradeID:  order.OrderID,
		Price:    order.Price,
		Book:     book,
		Quantity: order.Quantity(),
		Side:     side,
	}
}

// ExecutionListener books every confirmed execution.
func (s *TradeBookingService) ExecutionListener() soa.Listener[domain.ExecutionOrder] {
	return soa.OnAdd(func(ctx context.Context, order domain.ExecutionOrder) error {
		return s.BookTrade(ctx, TradeFromExecution(order, s.nextBook()))
	})
}
