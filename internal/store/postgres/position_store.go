package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// PositionStore implements domain.PositionStore with one row per product and
// book.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert writes every book of pos in one batch.
func (s *PositionStore) Upsert(ctx context.Context, pos domain.Position) error {
	product, err := json.Marshal(pos.Product)
	if err != nil {
		return fmt.Errorf("postgres: encode position product %s: %w", pos.Key(), err)
	}

	const query = `
		INSERT INTO positions (product_id, book, product, quantity, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (product_id, book) DO UPDATE SET
			product    = EXCLUDED.product,
			quantity   = EXCLUDED.quantity,
			updated_at = NOW()`

	books := pos.SortedBooks()
	batch := &pgx.Batch{}
	for _, book := range books {
		batch.Queue(query, pos.Key(), book, product, pos.Quantity(book))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, book := range books {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert position %s/%s: %w", pos.Key(), book, err)
		}
	}
	return nil
}

// GetByProduct returns the stored position, or domain.ErrNotFound.
func (s *PositionStore) GetByProduct(ctx context.Context, productID string) (domain.Position, error) {
	positions, err := s.query(ctx,
		`SELECT product_id, product, book, quantity FROM positions WHERE product_id = $1 ORDER BY book`,
		productID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", productID, err)
	}
	if len(positions) == 0 {
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", productID, domain.ErrNotFound)
	}
	return positions[0], nil
}

// List returns every stored position ordered by product id.
func (s *PositionStore) List(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.query(ctx,
		`SELECT product_id, product, book, quantity FROM positions ORDER BY product_id, book`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	return positions, nil
}

type positionRow struct {
	productID string
	product   []byte
	book      string
	quantity  int64
}

func (s *PositionStore) query(ctx context.Context, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raw []positionRow
	for rows.Next() {
		var r positionRow
		if err := rows.Scan(&r.productID, &r.product, &r.book, &r.quantity); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupPositions(raw)
}

// groupPositions folds rows ordered by product id into one Position each.
func groupPositions(rows []positionRow) ([]domain.Position, error) {
	var out []domain.Position
	for _, r := range rows {
		if len(out) == 0 || out[len(out)-1].Key() != r.productID {
			var product domain.Bond
			if err := json.Unmarshal(r.product, &product); err != nil {
				return nil, fmt.Errorf("decode product %s: %w", r.productID, err)
			}
			out = append(out, domain.NewPosition(product))
		}
		out[len(out)-1].Add(r.book, r.quantity)
	}
	return out, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
