package domain

import (
	"fmt"
	"strconv"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// PricingSide is the side of a resting order or two-way quote.
type PricingSide string

const (
	PricingSideBid   PricingSide = "BID"
	PricingSideOffer PricingSide = "OFFER"
)

func (s PricingSide) String() string { return string(s) }

// ParsePricingSide accepts BID or OFFER.
func ParsePricingSide(s string) (PricingSide, error) {
	switch PricingSide(s) {
	case PricingSideBid, PricingSideOffer:
		return PricingSide(s), nil
	}
	return "", fmt.Errorf("domain: parse pricing side %q: %w", s, ErrMalformedRecord)
}

// Side is the direction of a trade from the desk's point of view.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string { return string(s) }

// Sign returns +1 for BUY and -1 for SELL.
func (s Side) Sign() int64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// ParseSide accepts BUY or SELL.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", fmt.Errorf("domain: parse side %q: %w", s, ErrMalformedRecord)
}

// OrderType is the execution instruction sent to a venue.
type OrderType string

const (
	OrderTypeFOK    OrderType = "FOK"
	OrderTypeIOC    OrderType = "IOC"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

func (t OrderType) String() string { return string(t) }

// ParseOrderType accepts any of the five order types.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeFOK, OrderTypeIOC, OrderTypeMarket, OrderTypeLimit, OrderTypeStop:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("domain: parse order type %q: %w", s, ErrMalformedRecord)
}

// Market is an execution venue.
type Market string

const (
	MarketBrokerTec Market = "BROKERTEC"
	MarketESpeed    Market = "ESPEED"
	MarketCME       Market = "CME"
)

func (m Market) String() string { return string(m) }

// ParseMarket accepts BROKERTEC, ESPEED or CME.
func ParseMarket(s string) (Market, error) {
	switch Market(s) {
	case MarketBrokerTec, MarketESpeed, MarketCME:
		return Market(s), nil
	}
	return "", fmt.Errorf("domain: parse market %q: %w", s, ErrMalformedRecord)
}

// Order is one resting quantity at a price.
type Order struct {
	Price    float64     `json:"price"`
	Quantity int64       `json:"quantity"`
	Side     PricingSide `json:"side"`
}

// BidOffer is a top-of-book pair.
type BidOffer struct {
	Bid   Order `json:"bid"`
	Offer Order `json:"offer"`
}

// Spread is offer price minus bid price.
func (b BidOffer) Spread() float64 { return b.Offer.Price - b.Bid.Price }

// ExecutionOrder is an outbound order to a venue.
type ExecutionOrder struct {
	Product         Bond        `json:"product"`
	Side            PricingSide `json:"side"`
	OrderID         string      `json:"order_id"`
	OrderType       OrderType   `json:"order_type"`
	Price           float64     `json:"price"`
	VisibleQuantity int64       `json:"visible_quantity"`
	HiddenQuantity  int64       `json:"hidden_quantity"`
	ParentOrderID   string      `json:"parent_order_id"`
	IsChildOrder    bool        `json:"is_child_order"`
}

// Quantity is visible plus hidden.
func (e ExecutionOrder) Quantity() int64 { return e.VisibleQuantity + e.HiddenQuantity }

// Key is the product id; executions are stored per product.
func (e ExecutionOrder) Key() string { return e.Product.ProductID() }

func (e ExecutionOrder) Fields() []string {
	child := "NO"
	if e.IsChildOrder {
		child = "YES"
	}
	return []string{
		e.Product.ProductID(),
		e.Side.String(),
		e.OrderID,
		e.OrderType.String(),
		pricetick.Format(e.Price),
		strconv.FormatInt(e.VisibleQuantity, 10),
		strconv.FormatInt(e.HiddenQuantity, 10),
		e.ParentOrderID,
		child,
	}
}
