package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// TradeStore implements domain.TradeStore.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert records a booked trade. Replaying a trade id is a no-op.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	product, err := json.Marshal(t.Product)
	if err != nil {
		return fmt.Errorf("postgres: encode trade product %s: %w", t.TradeID, err)
	}
	const query = `
		INSERT INTO trades (trade_id, product_id, product, price, book, quantity, side)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (trade_id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query,
		t.TradeID, t.Product.ProductID(), product, t.Price, t.Book, t.Quantity, string(t.Side),
	); err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.TradeID, err)
	}
	return nil
}

// ListByProduct returns trades for a product, newest first.
func (s *TradeStore) ListByProduct(ctx context.Context, productID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query, args := appendListOpts(
		`SELECT trade_id, product, price, book, quantity, side FROM trades WHERE product_id = $1`,
		[]any{productID}, "booked_at", opts,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by product: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var product []byte
		var side string
		if err := rows.Scan(&t.TradeID, &product, &t.Price, &t.Book, &t.Quantity, &side); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		if err := json.Unmarshal(product, &t.Product); err != nil {
			return nil, fmt.Errorf("postgres: decode trade product %s: %w", t.TradeID, err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

var _ domain.TradeStore = (*TradeStore)(nil)
