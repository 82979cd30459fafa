package domain

import (
	"strconv"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// OrderBook holds the bid and offer stacks for one product. Either stack
// may be empty.
type OrderBook struct {
	Product Bond    `json:"product"`
	Bids    []Order `json:"bids"`
	Offers  []Order `json:"offers"`
}

// Key is the product id.
func (b OrderBook) Key() string { return b.Product.ProductID() }

// Clone copies both stacks so the caller can hand the book to another owner.
func (b OrderBook) Clone() OrderBook {
	out := OrderBook{Product: b.Product}
	if b.Bids != nil {
		out.Bids = append(make([]Order, 0, len(b.Bids)), b.Bids...)
	}
	if b.Offers != nil {
		out.Offers = append(make([]Order, 0, len(b.Offers)), b.Offers...)
	}
	return out
}

// TotalQuantity sums resting quantity on one side.
func (b OrderBook) TotalQuantity(side PricingSide) int64 {
	stack := b.Bids
	if side == PricingSideOffer {
		stack = b.Offers
	}
	var total int64
	for _, o := range stack {
		total += o.Quantity
	}
	return total
}

// Fields renders the product, level counts and the top price on each side,
// with an empty field for an empty side.
func (b OrderBook) Fields() []string {
	top := func(stack []Order) string {
		if len(stack) == 0 {
			return ""
		}
		return pricetick.Format(stack[0].Price)
	}
	return []string{
		b.Product.ProductID(),
		strconv.Itoa(len(b.Bids)),
		strconv.Itoa(len(b.Offers)),
		top(b.Bids),
		top(b.Offers),
	}
}
