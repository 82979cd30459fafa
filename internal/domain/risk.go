package domain

import (
	"strconv"
)

// BucketedSector is a named group of bonds whose risk is summed together.
type BucketedSector struct {
	Name     string `json:"name"`
	Products []Bond `json:"products"`
}

// ProductID lets a sector stand in for a product in a PV01 record.
func (s BucketedSector) ProductID() string { return s.Name }

// ProductType reports the type of the first member, BOND when empty.
func (s BucketedSector) ProductType() ProductType {
	if len(s.Products) > 0 {
		return s.Products[0].ProductType()
	}
	return ProductTypeBond
}

// PV01 is the rate risk of a quantity of a product or sector.
type PV01[T Product] struct {
	Product  T       `json:"product"`
	PV01     float64 `json:"pv01"`
	Quantity int64   `json:"quantity"`
}

func (r PV01[T]) Key() string { return r.Product.ProductID() }

// Exposure is pv01 times quantity.
func (r PV01[T]) Exposure() float64 { return r.PV01 * float64(r.Quantity) }

func (r PV01[T]) Fields() []string {
	return []string{
		r.Product.ProductID(),
		strconv.FormatFloat(r.PV01, 'f', 6, 64),
		strconv.FormatInt(r.Quantity, 10),
	}
}

var _ Product = BucketedSector{}
