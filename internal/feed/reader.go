// Package feed reads the desk's line-oriented input files into services and
// provides the boundary connectors that push values back out.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/pricetick"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// Feed names.
const (
	FeedPrices     = "prices"
	FeedTrades     = "trades"
	FeedMarketData = "marketdata"
	FeedInquiries  = "inquiries"
)

// Stats counts what one read did.
type Stats struct {
	Feed    string `json:"feed"`
	Records int    `json:"records"`
	Skipped int    `json:"skipped"`
}

// Reader is a connector that can report per-read statistics.
type Reader interface {
	Name() string
	Read(ctx context.Context, r io.Reader) (Stats, error)
}

// BondLookup resolves product ids to bonds.
type BondLookup interface {
	Bond(id string) (domain.Bond, error)
}

var tracer = telemetry.Tracer("feed")

// scan splits r into comma-separated records and hands each to handle.
// Records failing with ErrMalformedRecord are logged and skipped; any other
// error stops the read.
func scan(ctx context.Context, name string, r io.Reader, logger *slog.Logger, handle func(context.Context, []string) error) (Stats, error) {
	st := Stats{Feed: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return st, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		rctx, span := tracer.Start(ctx, "feed."+name+".record",
			trace.WithAttributes(attribute.Int("line", lineNo)))
		err := handle(rctx, splitRecord(line))
		if err != nil {
			span.RecordError(err)
		}
		span.End()

		switch {
		case err == nil:
			st.Records++
			telemetry.RecordsIngested.WithLabelValues(name).Inc()
		case errors.Is(err, domain.ErrMalformedRecord):
			st.Skipped++
			telemetry.RecordsSkipped.WithLabelValues(name).Inc()
			logger.WarnContext(ctx, "feed: malformed record skipped",
				slog.String("feed", name),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()),
			)
		default:
			return st, fmt.Errorf("feed: %s line %d: %w", name, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("feed: read %s: %w", name, err)
	}
	return st, nil
}

// splitRecord splits on commas and trims each field. A single trailing empty
// field, left by a trailing comma, is dropped.
func splitRecord(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if n := len(fields); n > 1 && fields[n-1] == "" {
		fields = fields[:n-1]
	}
	return fields
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrMalformedRecord)
}

func expectFields(fields []string, n int) error {
	if len(fields) != n {
		return malformed("want %d fields, got %d", n, len(fields))
	}
	return nil
}

func parseTick(s string) (float64, error) {
	p, err := pricetick.Parse(s)
	if err != nil {
		return 0, malformed("price %q", s)
	}
	return p, nil
}

func parseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil || q < 0 {
		return 0, malformed("quantity %q", s)
	}
	return q, nil
}
