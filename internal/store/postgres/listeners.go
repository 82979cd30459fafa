package postgres

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// PositionListener upserts every position the position service publishes.
// Store failures are logged and swallowed.
func PositionListener(store domain.PositionStore, logger *slog.Logger) soa.Listener[domain.Position] {
	return soa.OnAdd(func(ctx context.Context, p domain.Position) error {
		if err := store.Upsert(ctx, p); err != nil {
			logger.WarnContext(ctx, "position_store: upsert failed",
				slog.String("product", p.Key()),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

// TradeListener inserts every booked trade. Store failures are logged and
// swallowed.
func TradeListener(store domain.TradeStore, logger *slog.Logger) soa.Listener[domain.Trade] {
	return soa.OnAdd(func(ctx context.Context, t domain.Trade) error {
		if err := store.Insert(ctx, t); err != nil {
			logger.WarnContext(ctx, "trade_store: insert failed",
				slog.String("trade_id", t.TradeID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}
