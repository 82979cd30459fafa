package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// HistoryRow is one persisted historical record.
type HistoryRow struct {
	ID         int64         `json:"id"`
	Category   EventCategory `json:"category"`
	Key        string        `json:"key"`
	Fields     []string      `json:"fields"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// HistoryStore persists historical records as rows.
type HistoryStore interface {
	Insert(ctx context.Context, row HistoryRow) error
	List(ctx context.Context, cat EventCategory, opts ListOpts) ([]HistoryRow, error)
}

// PositionStore persists per-book position quantities.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	GetByProduct(ctx context.Context, productID string) (Position, error)
	List(ctx context.Context) ([]Position, error)
}

// TradeStore persists booked trades.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByProduct(ctx context.Context, productID string, opts ListOpts) ([]Trade, error)
}
