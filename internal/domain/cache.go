package domain

import (
	"context"
	"time"
)

// BookCache stores the latest top of book and aggregated depth per product.
type BookCache interface {
	SetBook(ctx context.Context, bbo BidOffer, depth OrderBook) error
	GetBBO(ctx context.Context, productID string) (BidOffer, error)
	GetDepth(ctx context.Context, productID string) (OrderBook, error)
}

// QuoteCache stores the latest two-way stream per product.
type QuoteCache interface {
	SetQuote(ctx context.Context, stream PriceStream, ts time.Time) error
	GetQuote(ctx context.Context, productID string) (PriceStream, time.Time, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
