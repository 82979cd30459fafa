package domain

import (
	"sort"
	"strconv"
)

// Position is the net holding of one product, split by book.
type Position struct {
	Product Bond             `json:"product"`
	Books   map[string]int64 `json:"books"`
}

// NewPosition returns an empty position for the product.
func NewPosition(product Bond) Position {
	return Position{Product: product, Books: make(map[string]int64)}
}

func (p Position) Key() string { return p.Product.ProductID() }

// Add applies a signed quantity to one book.
func (p *Position) Add(book string, qty int64) {
	if p.Books == nil {
		p.Books = make(map[string]int64)
	}
	p.Books[book] += qty
}

// Quantity returns the holding in one book.
func (p Position) Quantity(book string) int64 { return p.Books[book] }

// Aggregate sums every book. Negative means short.
func (p Position) Aggregate() int64 {
	var total int64
	for _, q := range p.Books {
		total += q
	}
	return total
}

// SortedBooks returns book names in ascending order.
func (p Position) SortedBooks() []string {
	books := make([]string, 0, len(p.Books))
	for b := range p.Books {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}

// Clone returns a copy with its own book map.
func (p Position) Clone() Position {
	out := NewPosition(p.Product)
	for b, q := range p.Books {
		out.Books[b] = q
	}
	return out
}

func (p Position) Fields() []string {
	books := p.SortedBooks()
	out := make([]string, 0, 1+2*len(books))
	out = append(out, p.Product.ProductID())
	for _, b := range books {
		out = append(out, b, strconv.FormatInt(p.Books[b], 10))
	}
	return out
}
