package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// QuoteCache implements domain.QuoteCache. Each product's latest stream is a
// hash at "quote:{id}" with the prices kept readable next to the full stream.
type QuoteCache struct {
	c *Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{c: c}
}

func (qc *QuoteCache) key(productID string) string { return qc.c.Key("quote", productID) }

// SetQuote stores the latest stream and its timestamp.
func (qc *QuoteCache) SetQuote(ctx context.Context, stream domain.PriceStream, ts time.Time) error {
	fields, err := quoteFields(stream, ts)
	if err != nil {
		return err
	}
	if err := qc.c.Underlying().HSet(ctx, qc.key(stream.Key()), fields).Err(); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", stream.Key(), err)
	}
	return nil
}

// GetQuote returns the latest stream, or domain.ErrNotFound.
func (qc *QuoteCache) GetQuote(ctx context.Context, productID string) (domain.PriceStream, time.Time, error) {
	vals, err := qc.c.Underlying().HGetAll(ctx, qc.key(productID)).Result()
	if err != nil {
		return domain.PriceStream{}, time.Time{}, fmt.Errorf("redis: get quote %s: %w", productID, err)
	}
	if len(vals) == 0 {
		return domain.PriceStream{}, time.Time{}, domain.ErrNotFound
	}
	return parseQuote(vals)
}

func quoteFields(stream domain.PriceStream, ts time.Time) (map[string]interface{}, error) {
	data, err := json.Marshal(stream)
	if err != nil {
		return nil, fmt.Errorf("redis: encode quote %s: %w", stream.Key(), err)
	}
	return map[string]interface{}{
		"bid":    formatFloat(stream.Bid.Price),
		"offer":  formatFloat(stream.Offer.Price),
		"stream": string(data),
		"ts":     strconv.FormatInt(ts.UnixNano(), 10),
	}, nil
}

func parseQuote(vals map[string]string) (domain.PriceStream, time.Time, error) {
	raw, ok := vals["stream"]
	if !ok {
		return domain.PriceStream{}, time.Time{}, domain.ErrNotFound
	}
	var stream domain.PriceStream
	if err := json.Unmarshal([]byte(raw), &stream); err != nil {
		return domain.PriceStream{}, time.Time{}, fmt.Errorf("redis: decode quote: %w", err)
	}
	nanos, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.PriceStream{}, time.Time{}, fmt.Errorf("redis: parse quote ts: %w", err)
	}
	return stream, time.Unix(0, nanos), nil
}

// QuoteListener caches every stream the streaming service publishes. Cache
// failures are logged and swallowed.
func QuoteListener(cache domain.QuoteCache, now func() time.Time, logger *slog.Logger) soa.Listener[domain.PriceStream] {
	return soa.OnAdd(func(ctx context.Context, ps domain.PriceStream) error {
		if err := cache.SetQuote(ctx, ps, now()); err != nil {
			logger.WarnContext(ctx, "quote_cache: set quote failed",
				slog.String("product", ps.Key()),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

var _ domain.QuoteCache = (*QuoteCache)(nil)
