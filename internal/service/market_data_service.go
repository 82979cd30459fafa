package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// DefaultBookDepth is the number of levels per side in a market data snapshot.
const DefaultBookDepth = 5

// MarketDataService owns the latest order book per product.
type MarketDataService struct {
	*soa.Store[string, domain.OrderBook]
	depth  int
	logger *slog.Logger
}

var _ soa.Service[string, domain.OrderBook] = (*MarketDataService)(nil)

// NewMarketDataService creates a MarketDataService. A non-positive depth
// falls back to DefaultBookDepth.
func NewMarketDataService(depth int, logger *slog.Logger) *MarketDataService {
	if depth <= 0 {
		depth = DefaultBookDepth
	}
	return &MarketDataService{
		Store:  soa.NewStore(domain.OrderBook.Key),
		depth:  depth,
		logger: logger,
	}
}

// BookDepth is the number of levels per side.
func (s *MarketDataService) BookDepth() int { return s.depth }

// OnMessage replaces the product's book and notifies listeners.
func (s *MarketDataService) OnMessage(ctx context.Context, book domain.OrderBook) error {
	s.Put(book.Clone())
	s.logger.DebugContext(ctx, "market_data_service: book replaced",
		slog.String("product", book.Key()),
		slog.Int("bids", len(book.Bids)),
		slog.Int("offers", len(book.Offers)),
	)
	return s.NotifyAdd(ctx, book)
}

// GetBestBidOffer returns the top of book for the product.
func (s *MarketDataService) GetBestBidOffer(productID string) (domain.BidOffer, error) {
	book, ok := s.Lookup(productID)
	if !ok {
		return domain.BidOffer{}, fmt.Errorf("market_data_service: best bid offer %q: %w", productID, domain.ErrEmptyBook)
	}
	bo, err := BestBidOffer(book)
	if err != nil {
		return domain.BidOffer{}, fmt.Errorf("market_data_service: best bid offer %q: %w", productID, err)
	}
	return bo, nil
}

// AggregateDepth returns the product's book with one order per distinct
// price, bids descending and offers ascending.
func (s *MarketDataService) AggregateDepth(productID string) domain.OrderBook {
	return AggregateBook(s.GetData(productID))
}

// BestBidOffer scans a book for the highest bid and lowest offer. Ties keep
// the first order seen.
func BestBidOffer(book domain.OrderBook) (domain.BidOffer, error) {
	if len(book.Bids) == 0 || len(book.Offers) == 0 {
		return domain.BidOffer{}, domain.ErrEmptyBook
	}
	bid := book.Bids[0]
	for _, o := range book.Bids[1:] {
		if o.Price > bid.Price {
			bid = o
		}
	}
	offer := book.Offers[0]
	for _, o := range book.Offers[1:] {
		if o.Price < offer.Price {
			offer = o
		}
	}
	return domain.BidOffer{Bid: bid, Offer: offer}, nil
}

// AggregateBook sums quantity per exact price on each side.
func AggregateBook(book domain.OrderBook) domain.OrderBook {
	return domain.OrderBook{
		Product: book.Product,
		Bids:    aggregateSide(book.Bids, domain.PricingSideBid),
		Offers:  aggregateSide(book.Offers, domain.PricingSideOffer),
	}
}

func aggregateSide(stack []domain.Order, side domain.PricingSide) []domain.Order {
	if len(stack) == 0 {
		return nil
	}
	byPrice := make(map[float64]int64, len(stack))
	for _, o := range stack {
		byPrice[o.Price] += o.Quantity
	}
	out := make([]domain.Order, 0, len(byPrice))
	for p, q := range byPrice {
		out = append(out, domain.Order{Price: p, Quantity: q, Side: side})
	}
	sort.Slice(out, func(i, j int) bool {
		if side == domain.PricingSideBid {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}
