package feed

import (
	"context"
	"io"
	"log/slog"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// PriceHandler accepts prices, e.g. a PricingService.
type PriceHandler interface {
	OnMessage(ctx context.Context, p domain.Price) error
}

// PriceConnector reads "productId,bidTick,offerTick" records.
type PriceConnector struct {
	svc    PriceHandler
	bonds  BondLookup
	logger *slog.Logger
}

var _ soa.Connector[domain.Price] = (*PriceConnector)(nil)

func NewPriceConnector(svc PriceHandler, bonds BondLookup, logger *slog.Logger) *PriceConnector {
	return &PriceConnector{svc: svc, bonds: bonds, logger: logger}
}

func (c *PriceConnector) Name() string { return FeedPrices }

// Publish is a no-op: prices only flow inward.
func (c *PriceConnector) Publish(context.Context, domain.Price) error { return nil }

func (c *PriceConnector) Subscribe(ctx context.Context, r io.Reader) error {
	_, err := c.Read(ctx, r)
	return err
}

func (c *PriceConnector) Read(ctx context.Context, r io.Reader) (Stats, error) {
	return scan(ctx, FeedPrices, r, c.logger, func(ctx context.Context, f []string) error {
		if err := expectFields(f, 3); err != nil {
			return err
		}
		bid, err := parseTick(f[1])
		if err != nil {
			return err
		}
		offer, err := parseTick(f[2])
		if err != nil {
			return err
		}
		bond, err := c.bonds.Bond(f[0])
		if err != nil {
			return err
		}
		return c.svc.OnMessage(ctx, domain.Price{
			Product:        bond,
			Mid:            (bid + offer) / 2,
			BidOfferSpread: offer - bid,
		})
	})
}

// TradeHandler books trades, e.g. a TradeBookingService.
type TradeHandler interface {
	BookTrade(ctx context.Context, t domain.Trade) error
}

// TradeConnector reads "productId,tradeId,priceTick,book,quantity,side" records.
type TradeConnector struct {
	svc    TradeHandler
	bonds  BondLookup
	logger *slog.Logger
}

var _ soa.Connector[domain.Trade] = (*TradeConnector)(nil)

func NewTradeConnector(svc TradeHandler, bonds BondLookup, logger *slog.Logger) *TradeConnector {
	return &TradeConnector{svc: svc, bonds: bonds, logger: logger}
}

func (c *TradeConnector) Name() string { return FeedTrades }

// Publish is a no-op: trades only flow inward.
func (c *TradeConnector) Publish(context.Context, domain.Trade) error { return nil }

func (c *TradeConnector) Subscribe(ctx context.Context, r io.Reader) error {
	_, err := c.Read(ctx, r)
	return err
}

func (c *TradeConnector) Read(ctx context.Context, r io.Reader) (Stats, error) {
	return scan(ctx, FeedTrades, r, c.logger, func(ctx context.Context, f []string) error {
		if err := expectFields(f, 6); err != nil {
			return err
		}
		price, err := parseTick(f[2])
		if err != nil {
			return err
		}
		if f[1] == "" || f[3] == "" {
			return malformed("empty trade id or book")
		}
		qty, err := parseQuantity(f[4])
		if err != nil {
			return err
		}
		side, err := domain.ParseSide(f[5])
		if err != nil {
			return err
		}
		bond, err := c.bonds.Bond(f[0])
		if err != nil {
			return err
		}
		return c.svc.BookTrade(ctx, domain.Trade{
			Product:  bond,
			TradeID:  f[1],
			Price:    price,
			Book:     f[3],
			Quantity: qty,
			Side:     side,
		})
	})
}

// BookHandler accepts full order books, e.g. a MarketDataService.
type BookHandler interface {
	OnMessage(ctx context.Context, b domain.OrderBook) error
	BookDepth() int
}

// MarketDataConnector reads "productId,priceTick,quantity,side" records and
// emits one book per 2×depth valid records. The book takes the product of
// the batch's last record. A trailing partial batch is dropped.
type MarketDataConnector struct {
	svc    BookHandler
	bonds  BondLookup
	logger *slog.Logger
}

var _ soa.Connector[domain.OrderBook] = (*MarketDataConnector)(nil)

func NewMarketDataConnector(svc BookHandler, bonds BondLookup, logger *slog.Logger) *MarketDataConnector {
	return &MarketDataConnector{svc: svc, bonds: bonds, logger: logger}
}

func (c *MarketDataConnector) Name() string { return FeedMarketData }

// Publish is a no-op: books only flow inward.
func (c *MarketDataConnector) Publish(context.Context, domain.OrderBook) error { return nil }

func (c *MarketDataConnector) Subscribe(ctx context.Context, r io.Reader) error {
	_, err := c.Read(ctx, r)
	return err
}

func (c *MarketDataConnector) Read(ctx context.Context, r io.Reader) (Stats, error) {
	batch := 2 * c.svc.BookDepth()
	var bids, offers []domain.Order
	count := 0

	st, err := scan(ctx, FeedMarketData, r, c.logger, func(ctx context.Context, f []string) error {
		if err := expectFields(f, 4); err != nil {
			return err
		}
		price, err := parseTick(f[1])
		if err != nil {
			return err
		}
		qty, err := parseQuantity(f[2])
		if err != nil {
			return err
		}
		side, err := domain.ParsePricingSide(f[3])
		if err != nil {
			return err
		}

		o := domain.Order{Price: price, Quantity: qty, Side: side}
		if side == domain.PricingSideBid {
			bids = append(bids, o)
		} else {
			offers = append(offers, o)
		}
		count++
		if count%batch != 0 {
			return nil
		}

		bond, err := c.bonds.Bond(f[0])
		if err != nil {
			return err
		}
		book := domain.OrderBook{Product: bond, Bids: bids, Offers: offers}
		bids, offers = nil, nil
		return c.svc.OnMessage(ctx, book)
	})
	if err == nil && (len(bids) > 0 || len(offers) > 0) {
		c.logger.WarnContext(ctx, "feed: partial market data batch dropped",
			slog.Int("orders", len(bids)+len(offers)),
			slog.Int("batch", batch),
		)
	}
	return st, err
}

// InquiryHandler accepts inquiries, e.g. an InquiryService.
type InquiryHandler interface {
	OnMessage(ctx context.Context, inq domain.Inquiry) error
}

// InquiryConnector reads "inquiryId,productId,side,quantity,state" records
// and plays the customer side of the negotiation: publishing a RECEIVED
// inquiry quotes it and sends it straight back to the service.
type InquiryConnector struct {
	svc    InquiryHandler
	bonds  BondLookup
	logger *slog.Logger
}

var _ soa.Connector[domain.Inquiry] = (*InquiryConnector)(nil)

func NewInquiryConnector(svc InquiryHandler, bonds BondLookup, logger *slog.Logger) *InquiryConnector {
	return &InquiryConnector{svc: svc, bonds: bonds, logger: logger}
}

func (c *InquiryConnector) Name() string { return FeedInquiries }

func (c *InquiryConnector) Publish(ctx context.Context, inq domain.Inquiry) error {
	if inq.State != domain.InquiryReceived {
		return nil
	}
	inq.State = domain.InquiryQuoted
	return c.svc.OnMessage(ctx, inq)
}

func (c *InquiryConnector) Subscribe(ctx context.Context, r io.Reader) error {
	_, err := c.Read(ctx, r)
	return err
}

func (c *InquiryConnector) Read(ctx context.Context, r io.Reader) (Stats, error) {
	return scan(ctx, FeedInquiries, r, c.logger, func(ctx context.Context, f []string) error {
		if err := expectFields(f, 5); err != nil {
			return err
		}
		if f[0] == "" {
			return malformed("empty inquiry id")
		}
		side, err := domain.ParseSide(f[2])
		if err != nil {
			return err
		}
		qty, err := parseQuantity(f[3])
		if err != nil {
			return err
		}
		state, err := domain.ParseInquiryState(f[4])
		if err != nil {
			return err
		}
		bond, err := c.bonds.Bond(f[1])
		if err != nil {
			return err
		}
		return c.svc.OnMessage(ctx, domain.Inquiry{
			InquiryID: f[0],
			Product:   bond,
			Side:      side,
			Quantity:  qty,
			State:     state,
		})
	})
}
