// Package refdata provides static reference data for the products the desk
// trades: bond attributes, PV01 per unit, and the risk sectors.
package refdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// Provider looks up reference data by product id.
type Provider interface {
	Bond(id string) (domain.Bond, error)
	PV01(id string) (float64, error)
	Bonds() []domain.Bond
	Sectors() []domain.BucketedSector
}

type entry struct {
	bond domain.Bond
	pv01 float64
}

// Static is an in-memory Provider.
type Static struct {
	byID    map[string]entry
	sectors []domain.BucketedSector
}

var _ Provider = (*Static)(nil)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func treasuries() []entry {
	return []entry{
		{domain.Bond{ID: "91282CLY5", IDType: domain.BondIDCUSIP, Ticker: "US2Y", Coupon: 0.0425, Maturity: date("2026-11-30")}, 0.1854},
		{domain.Bond{ID: "91282CMB4", IDType: domain.BondIDCUSIP, Ticker: "US3Y", Coupon: 0.0400, Maturity: date("2027-12-15")}, 0.2738},
		{domain.Bond{ID: "91282CMA6", IDType: domain.BondIDCUSIP, Ticker: "US5Y", Coupon: 0.04125, Maturity: date("2029-11-30")}, 0.4389},
		{domain.Bond{ID: "91282CLZ2", IDType: domain.BondIDCUSIP, Ticker: "US7Y", Coupon: 0.04125, Maturity: date("2031-11-30")}, 0.5911},
		{domain.Bond{ID: "91282CLW9", IDType: domain.BondIDCUSIP, Ticker: "US10Y", Coupon: 0.0425, Maturity: date("2034-11-15")}, 0.7910},
		{domain.Bond{ID: "912810UF3", IDType: domain.BondIDCUSIP, Ticker: "US20Y", Coupon: 0.04625, Maturity: date("2044-11-15")}, 1.2829},
		{domain.Bond{ID: "912810UE6", IDType: domain.BondIDCUSIP, Ticker: "US30Y", Coupon: 0.04500, Maturity: date("2054-11-15")}, 1.5956},
	}
}

// DefaultSectors maps sector name to member tickers.
func DefaultSectors() map[string][]string {
	return map[string][]string{
		"FrontEnd": {"US2Y", "US3Y"},
		"Belly":    {"US5Y", "US7Y", "US10Y"},
		"LongEnd":  {"US20Y", "US30Y"},
	}
}

// Options overrides parts of the default table.
type Options struct {
	// PV01 overrides keyed by product id.
	PV01 map[string]float64
	// Sectors keyed by name, members listed by ticker or product id.
	// Nil means DefaultSectors.
	Sectors map[string][]string
}

// NewStatic builds the on-the-run Treasury table with any overrides applied.
func NewStatic(opts Options) (*Static, error) {
	s := &Static{byID: make(map[string]entry)}
	for _, e := range treasuries() {
		s.byID[e.bond.ID] = e
	}

	for id, v := range opts.PV01 {
		e, ok := s.byID[id]
		if !ok {
			return nil, fmt.Errorf("refdata: pv01 override %q: %w", id, domain.ErrUnknownProduct)
		}
		e.pv01 = v
		s.byID[id] = e
	}

	sectors := opts.Sectors
	if sectors == nil {
		sectors = DefaultSectors()
	}
	names := make([]string, 0, len(sectors))
	for n := range sectors {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		sector := domain.BucketedSector{Name: name}
		for _, member := range sectors[name] {
			b, err := s.resolve(member)
			if err != nil {
				return nil, fmt.Errorf("refdata: sector %s: %w", name, err)
			}
			sector.Products = append(sector.Products, b)
		}
		s.sectors = append(s.sectors, sector)
	}
	return s, nil
}

// MustStatic is NewStatic with defaults, for tests and tools.
func MustStatic() *Static {
	s, err := NewStatic(Options{})
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Static) resolve(member string) (domain.Bond, error) {
	if e, ok := s.byID[member]; ok {
		return e.bond, nil
	}
	for _, e := range s.byID {
		if e.bond.Ticker == member {
			return e.bond, nil
		}
	}
	return domain.Bond{}, fmt.Errorf("%q: %w", member, domain.ErrUnknownProduct)
}

// Bond returns the bond with the given CUSIP.
func (s *Static) Bond(id string) (domain.Bond, error) {
	e, ok := s.byID[id]
	if !ok {
		return domain.Bond{}, fmt.Errorf("refdata: bond %q: %w", id, domain.ErrUnknownProduct)
	}
	return e.bond, nil
}

// PV01 returns the per-unit PV01 for the given CUSIP.
func (s *Static) PV01(id string) (float64, error) {
	e, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("refdata: pv01 %q: %w", id, domain.ErrUnknownProduct)
	}
	return e.pv01, nil
}

// Bonds returns every bond ordered by maturity.
func (s *Static) Bonds() []domain.Bond {
	out := make([]domain.Bond, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e.bond)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Maturity.Before(out[j].Maturity) })
	return out
}

// Sectors returns the configured sectors ordered by name.
func (s *Static) Sectors() []domain.BucketedSector {
	return append([]domain.BucketedSector(nil), s.sectors...)
}

// Sector finds a sector by name.
func Sector(p Provider, name string) (domain.BucketedSector, error) {
	for _, sec := range p.Sectors() {
		if sec.Name == name {
			return sec, nil
		}
	}
	return domain.BucketedSector{}, fmt.Errorf("refdata: sector %q: %w", name, domain.ErrNotFound)
}
