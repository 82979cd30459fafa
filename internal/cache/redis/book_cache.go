package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// BookCache implements domain.BookCache with one group of keys per product.
//
// Key schema, under the client prefix:
//
//	book:{id}:bbo        - hash: bid, bid_qty, offer, offer_qty, ts
//	book:{id}:bids       - sorted set of bid prices (score = price)
//	book:{id}:offers     - sorted set of offer prices (score = price)
//	book:{id}:bid:qty    - hash mapping price -> aggregated quantity
//	book:{id}:offer:qty  - hash mapping price -> aggregated quantity
//	book:{id}:meta       - hash: product (JSON), ts
type BookCache struct {
	c   *Client
	now func() time.Time
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{c: c, now: time.Now}
}

type bookKeys struct {
	bbo, bids, offers, bidQty, offerQty, meta string
}

func (bc *BookCache) keys(productID string) bookKeys {
	return bookKeys{
		bbo:      bc.c.Key("book", productID, "bbo"),
		bids:     bc.c.Key("book", productID, "bids"),
		offers:   bc.c.Key("book", productID, "offers"),
		bidQty:   bc.c.Key("book", productID, "bid", "qty"),
		offerQty: bc.c.Key("book", productID, "offer", "qty"),
		meta:     bc.c.Key("book", productID, "meta"),
	}
}

// SetBook atomically replaces the cached top of book and depth for a product.
func (bc *BookCache) SetBook(ctx context.Context, bbo domain.BidOffer, depth domain.OrderBook) error {
	id := depth.Product.ProductID()
	k := bc.keys(id)
	ts := bc.now()

	product, err := json.Marshal(depth.Product)
	if err != nil {
		return fmt.Errorf("redis: encode product %s: %w", id, err)
	}

	pipe := bc.c.Underlying().TxPipeline()
	pipe.Del(ctx, k.bbo, k.bids, k.offers, k.bidQty, k.offerQty, k.meta)
	for _, o := range depth.Bids {
		p := formatFloat(o.Price)
		pipe.ZAdd(ctx, k.bids, redis.Z{Score: o.Price, Member: p})
		pipe.HSet(ctx, k.bidQty, p, strconv.FormatInt(o.Quantity, 10))
	}
	for _, o := range depth.Offers {
		p := formatFloat(o.Price)
		pipe.ZAdd(ctx, k.offers, redis.Z{Score: o.Price, Member: p})
		pipe.HSet(ctx, k.offerQty, p, strconv.FormatInt(o.Quantity, 10))
	}
	pipe.HSet(ctx, k.bbo, bboFields(bbo, ts))
	pipe.HSet(ctx, k.meta, map[string]interface{}{
		"product": string(product),
		"ts":      strconv.FormatInt(ts.UnixNano(), 10),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book %s: %w", id, err)
	}
	return nil
}

// GetBBO returns the cached top of book, or domain.ErrNotFound.
func (bc *BookCache) GetBBO(ctx context.Context, productID string) (domain.BidOffer, error) {
	vals, err := bc.c.Underlying().HGetAll(ctx, bc.keys(productID).bbo).Result()
	if err != nil {
		return domain.BidOffer{}, fmt.Errorf("redis: get bbo %s: %w", productID, err)
	}
	if len(vals) == 0 {
		return domain.BidOffer{}, domain.ErrNotFound
	}
	bo, err := parseBBO(vals)
	if err != nil {
		return domain.BidOffer{}, fmt.Errorf("redis: get bbo %s: %w", productID, err)
	}
	return bo, nil
}

// GetDepth rebuilds the cached aggregated book, bids descending and offers
// ascending. It returns domain.ErrNotFound when nothing is cached.
func (bc *BookCache) GetDepth(ctx context.Context, productID string) (domain.OrderBook, error) {
	k := bc.keys(productID)
	pipe := bc.c.Underlying().Pipeline()
	metaCmd := pipe.HGetAll(ctx, k.meta)
	bidsCmd := pipe.ZRevRangeWithScores(ctx, k.bids, 0, -1)
	offersCmd := pipe.ZRangeWithScores(ctx, k.offers, 0, -1)
	bidQtyCmd := pipe.HGetAll(ctx, k.bidQty)
	offerQtyCmd := pipe.HGetAll(ctx, k.offerQty)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.OrderBook{}, fmt.Errorf("redis: get depth %s: %w", productID, err)
	}

	meta, _ := metaCmd.Result()
	if len(meta) == 0 {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	var book domain.OrderBook
	if err := json.Unmarshal([]byte(meta["product"]), &book.Product); err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: decode product %s: %w", productID, err)
	}

	bids, _ := bidsCmd.Result()
	bidQty, _ := bidQtyCmd.Result()
	offers, _ := offersCmd.Result()
	offerQty, _ := offerQtyCmd.Result()
	book.Bids = levels(bids, bidQty, domain.PricingSideBid)
	book.Offers = levels(offers, offerQty, domain.PricingSideOffer)
	return book, nil
}

func bboFields(bo domain.BidOffer, ts time.Time) map[string]interface{} {
	return map[string]interface{}{
		"bid":       formatFloat(bo.Bid.Price),
		"bid_qty":   strconv.FormatInt(bo.Bid.Quantity, 10),
		"offer":     formatFloat(bo.Offer.Price),
		"offer_qty": strconv.FormatInt(bo.Offer.Quantity, 10),
		"ts":        strconv.FormatInt(ts.UnixNano(), 10),
	}
}

func parseBBO(vals map[string]string) (domain.BidOffer, error) {
	bid, err := strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return domain.BidOffer{}, fmt.Errorf("parse bid: %w", err)
	}
	offer, err := strconv.ParseFloat(vals["offer"], 64)
	if err != nil {
		return domain.BidOffer{}, fmt.Errorf("parse offer: %w", err)
	}
	bidQty, _ := strconv.ParseInt(vals["bid_qty"], 10, 64)
	offerQty, _ := strconv.ParseInt(vals["offer_qty"], 10, 64)
	return domain.BidOffer{
		Bid:   domain.Order{Price: bid, Quantity: bidQty, Side: domain.PricingSideBid},
		Offer: domain.Order{Price: offer, Quantity: offerQty, Side: domain.PricingSideOffer},
	}, nil
}

// levels pairs sorted set members with their quantities. Members whose
// quantity hash entry is missing are dropped.
func levels(zs []redis.Z, qty map[string]string, side domain.PricingSide) []domain.Order {
	out := make([]domain.Order, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		q, err := strconv.ParseInt(qty[member], 10, 64)
		if err != nil {
			continue
		}
		out = append(out, domain.Order{Price: z.Score, Quantity: q, Side: side})
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BookAggregator computes the top of book and aggregated depth of a book.
type BookAggregator interface {
	GetBestBidOffer(productID string) (domain.BidOffer, error)
	AggregateDepth(productID string) domain.OrderBook
}

// BookListener caches every book the market data service publishes. Books
// without a top of book are skipped. Cache failures are logged and swallowed.
func BookListener(cache domain.BookCache, md BookAggregator, logger *slog.Logger) soa.Listener[domain.OrderBook] {
	return soa.OnAdd(func(ctx context.Context, b domain.OrderBook) error {
		bo, err := md.GetBestBidOffer(b.Key())
		if err != nil {
			return nil
		}
		if err := cache.SetBook(ctx, bo, md.AggregateDepth(b.Key())); err != nil {
			logger.WarnContext(ctx, "book_cache: set book failed",
				slog.String("product", b.Key()),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

var _ domain.BookCache = (*BookCache)(nil)
