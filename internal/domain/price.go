package domain

import (
	"strconv"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// Price is the desk's internal fair value for a product.
type Price struct {
	Product        Bond    `json:"product"`
	Mid            float64 `json:"mid"`
	BidOfferSpread float64 `json:"bid_offer_spread"`
}

func (p Price) Key() string { return p.Product.ProductID() }

func (p Price) Fields() []string {
	return []string{
		p.Product.ProductID(),
		pricetick.Format(p.Mid),
		pricetick.Format(p.BidOfferSpread),
	}
}

// PriceStreamOrder is one side of a publishable quote.
type PriceStreamOrder struct {
	Price           float64     `json:"price"`
	VisibleQuantity int64       `json:"visible_quantity"`
	HiddenQuantity  int64       `json:"hidden_quantity"`
	Side            PricingSide `json:"side"`
}

func (o PriceStreamOrder) fields() []string {
	return []string{
		pricetick.Format(o.Price),
		strconv.FormatInt(o.VisibleQuantity, 10),
		strconv.FormatInt(o.HiddenQuantity, 10),
		o.Side.String(),
	}
}

// PriceStream is a two-way quote.
type PriceStream struct {
	Product Bond             `json:"product"`
	Bid     PriceStreamOrder `json:"bid"`
	Offer   PriceStreamOrder `json:"offer"`
}

func (s PriceStream) Key() string { return s.Product.ProductID() }

func (s PriceStream) Fields() []string {
	out := make([]string, 0, 9)
	out = append(out, s.Product.ProductID())
	out = append(out, s.Bid.fields()...)
	return append(out, s.Offer.fields()...)
}
