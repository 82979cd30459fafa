package domain

import (
	"strconv"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// Trade is a confirmed fill booked to one of the desk's books.
type Trade struct {
	Product  Bond    `json:"product"`
	TradeID  string  `json:"trade_id"`
	Price    float64 `json:"price"`
	Book     string  `json:"book"`
	Quantity int64   `json:"quantity"`
	Side     Side    `json:"side"`
}

// Key is the trade id.
func (t Trade) Key() string { return t.TradeID }

// SignedQuantity is +quantity for BUY and -quantity for SELL.
func (t Trade) SignedQuantity() int64 { return t.Side.Sign() * t.Quantity }

func (t Trade) Fields() []string {
	return []string{
		t.Product.ProductID(),
		t.TradeID,
		pricetick.Format(t.Price),
		t.Book,
		strconv.FormatInt(t.Quantity, 10),
		t.Side.String(),
	}
}
