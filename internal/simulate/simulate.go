// Package simulate writes synthetic input feeds for the desk.
package simulate

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// Output file names, matching the desk's default feed paths.
const (
	PricesFile     = "prices.txt"
	TradesFile     = "trades.txt"
	MarketDataFile = "marketdata.txt"
	InquiriesFile  = "inquiries.txt"
)

const (
	floor   = 99.0
	ceiling = 101.0
	tick    = pricetick.Tick
)

// Config controls how much data is generated.
type Config struct {
	Dir                 string
	Products            []string
	PricesPerProduct    int
	BooksPerProduct     int
	TradesPerProduct    int
	InquiriesPerProduct int
	BookDepth           int
	// NewID generates trade and inquiry ids. Nil uses short uuids.
	NewID func() string
}

// Generator writes the four feed files.
type Generator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Generator, filling unset counts with small defaults.
func New(cfg Config, logger *slog.Logger) *Generator {
	if cfg.PricesPerProduct <= 0 {
		cfg.PricesPerProduct = 1000
	}
	if cfg.BooksPerProduct <= 0 {
		cfg.BooksPerProduct = 1000
	}
	if cfg.TradesPerProduct <= 0 {
		cfg.TradesPerProduct = 10
	}
	if cfg.InquiriesPerProduct <= 0 {
		cfg.InquiriesPerProduct = 10
	}
	if cfg.BookDepth <= 0 {
		cfg.BookDepth = 5
	}
	if cfg.NewID == nil {
		cfg.NewID = shortID
	}
	return &Generator{cfg: cfg, logger: logger}
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Generate writes every feed and returns the paths written.
func (g *Generator) Generate(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(g.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("simulate: create dir: %w", err)
	}
	steps := []struct {
		name string
		fn   func(*bufio.Writer) error
	}{
		{TradesFile, g.writeTrades},
		{MarketDataFile, g.writeMarketData},
		{InquiriesFile, g.writeInquiries},
		{PricesFile, g.writePrices},
	}
	var paths []string
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(g.cfg.Dir, s.name)
		if err := writeFile(path, s.fn); err != nil {
			return paths, fmt.Errorf("simulate: write %s: %w", s.name, err)
		}
		g.logger.InfoContext(ctx, "simulate: feed written", slog.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// nextMid walks the mid one tick towards the current bound, pausing one
// step at each bound before turning around.
func nextMid(mid float64, ascending *bool) float64 {
	if *ascending {
		if mid+tick > ceiling {
			*ascending = false
			return ceiling
		}
		return mid + tick
	}
	if mid-tick < floor {
		*ascending = true
		return floor
	}
	return mid - tick
}

func (g *Generator) writePrices(w *bufio.Writer) error {
	for _, id := range g.cfg.Products {
		mid, ascending, toggle := floor, true, true
		for i := 0; i < g.cfg.PricesPerProduct; i++ {
			spread := 1.0 / 64
			if mid != floor && mid != ceiling && toggle {
				spread = 1.0 / 128
			}
			toggle = !toggle

			bid := max(mid-spread, floor)
			offer := min(mid+spread, ceiling)
			if _, err := fmt.Fprintf(w, "%s,%s,%s\n", id, pricetick.Format(bid), pricetick.Format(offer)); err != nil {
				return err
			}
			mid = nextMid(mid, &ascending)
		}
	}
	return nil
}

func (g *Generator) writeMarketData(w *bufio.Writer) error {
	cycle := []float64{1.0 / 128, 1.0 / 64, 3.0 / 128, 1.0 / 32}
	ci := 0
	for _, id := range g.cfg.Products {
		mid, ascending := floor, true
		for i := 0; i < g.cfg.BooksPerProduct; i++ {
			top := cycle[ci]
			ci = (ci + 1) % len(cycle)
			for level := 0; level < g.cfg.BookDepth; level++ {
				spread := top + float64(level)/128
				qty := strconv.Itoa((level + 1) * 10_000_000)
				if _, err := fmt.Fprintf(w, "%s,%s,%s,BID\n", id, pricetick.Format(mid-spread), qty); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(w, "%s,%s,%s,OFFER\n", id, pricetick.Format(mid+spread), qty); err != nil {
					return err
				}
			}
			mid = nextMid(mid, &ascending)
		}
	}
	return nil
}

func (g *Generator) writeTrades(w *bufio.Writer) error {
	books := []string{"TRSY1", "TRSY2", "TRSY3"}
	qi := 0
	for _, id := range g.cfg.Products {
		for n := 0; n < g.cfg.TradesPerProduct; n++ {
			side, price := "BUY", 99.0
			if n%2 == 1 {
				side, price = "SELL", 100.0
			}
			qty := (qi%5 + 1) * 1_000_000
			qi++
			if _, err := fmt.Fprintf(w, "%s,%s,%s,%s,%d,%s\n",
				id, g.cfg.NewID(), pricetick.Format(price), books[n%len(books)], qty, side); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) writeInquiries(w *bufio.Writer) error {
	for _, id := range g.cfg.Products {
		for n := 0; n < g.cfg.InquiriesPerProduct; n++ {
			side := "SELL"
			if n%2 == 1 {
				side = "BUY"
			}
			qty := (n%5 + 1) * 1_000_000
			if _, err := fmt.Fprintf(w, "%s,%s,%s,%d,RECEIVED\n", g.cfg.NewID(), id, side, qty); err != nil {
				return err
			}
		}
	}
	return nil
}
