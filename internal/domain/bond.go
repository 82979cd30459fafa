package domain

import (
	"strconv"
	"time"
)

// ProductType classifies a tradable instrument.
type ProductType string

const (
	ProductTypeBond   ProductType = "BOND"
	ProductTypeIRSwap ProductType = "IRSWAP"
)

// Product is anything with a stable identifier that services can key on.
type Product interface {
	ProductID() string
	ProductType() ProductType
}

// BondIDType names the identifier scheme of a bond's product ID.
type BondIDType string

const (
	BondIDCUSIP BondIDType = "CUSIP"
	BondIDISIN  BondIDType = "ISIN"
)

// Bond is a fixed-coupon government bond.
type Bond struct {
	ID       string     `json:"id"`
	IDType   BondIDType `json:"id_type"`
	Ticker   string     `json:"ticker"`
	Coupon   float64    `json:"coupon"`
	Maturity time.Time  `json:"maturity"`
}

// ProductID returns the CUSIP (or ISIN) of the bond.
func (b Bond) ProductID() string { return b.ID }

// ProductType always reports BOND.
func (b Bond) ProductType() ProductType { return ProductTypeBond }

// String renders the bond the way a desk blotter shows it, e.g. "US10Y 4.250% 2034-11-15".
func (b Bond) String() string {
	return b.Ticker + " " + formatCoupon(b.Coupon) + " " + b.Maturity.Format("2006-01-02")
}

var _ Product = Bond{}

func formatCoupon(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 3, 64) + "%"
}
