package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// HistoryStore implements domain.HistoryStore. Every historical record is one
// row holding its category, key and rendered fields.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a HistoryStore backed by the given pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Insert appends one row.
func (s *HistoryStore) Insert(ctx context.Context, row domain.HistoryRow) error {
	const query = `
		INSERT INTO history (category, key, fields, recorded_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query,
		string(row.Category), row.Key, row.Fields, row.RecordedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert %s history %s: %w", row.Category, row.Key, err)
	}
	return nil
}

// List returns rows of one category, newest first.
func (s *HistoryStore) List(ctx context.Context, cat domain.EventCategory, opts domain.ListOpts) ([]domain.HistoryRow, error) {
	query, args := appendListOpts(
		`SELECT id, category, key, fields, recorded_at FROM history WHERE category = $1`,
		[]any{string(cat)}, "recorded_at", opts,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s history: %w", cat, err)
	}
	defer rows.Close()

	var out []domain.HistoryRow
	for rows.Next() {
		var r domain.HistoryRow
		var category string
		if err := rows.Scan(&r.ID, &category, &r.Key, &r.Fields, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan %s history: %w", cat, err)
		}
		r.Category = domain.EventCategory(category)
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ domain.HistoryStore = (*HistoryStore)(nil)
