package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/refdata"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// RiskService converts positions into PV01 exposure.
type RiskService struct {
	*soa.Store[string, domain.PV01[domain.Bond]]
	ref    refdata.Provider
	logger *slog.Logger
}

var _ soa.Service[string, domain.PV01[domain.Bond]] = (*RiskService)(nil)

// NewRiskService creates a RiskService backed by the given reference data.
func NewRiskService(ref refdata.Provider, logger *slog.Logger) *RiskService {
	return &RiskService{
		Store:  soa.NewStore(domain.PV01[domain.Bond].Key),
		ref:    ref,
		logger: logger,
	}
}

// OnMessage stores a risk record without notifying.
func (s *RiskService) OnMessage(_ context.Context, r domain.PV01[domain.Bond]) error {
	s.Put(r)
	return nil
}

// AddPosition computes PV01 exposure for a position and notifies listeners.
// An unknown product fails the whole chain.
func (s *RiskService) AddPosition(ctx context.Context, pos domain.Position) error {
	pv01, err := s.ref.PV01(pos.Product.ProductID())
	if err != nil {
		return fmt.Errorf("risk_service: add position: %w", err)
	}
	r := domain.PV01[domain.Bond]{
		Product:  pos.Product,
		PV01:     pv01,
		Quantity: pos.Aggregate(),
	}
	s.Put(r)

	s.logger.DebugContext(ctx, "risk_service: risk updated",
		slog.String("product", r.Key()),
		slog.Int64("quantity", r.Quantity),
		slog.Float64("exposure", r.Exposure()),
	)
	return s.NotifyAdd(ctx, r)
}

// GetBucketedRisk sums pv01 times quantity over the sector's stored risk.
// The returned quantity is always 1: the record represents one bucket.
func (s *RiskService) GetBucketedRisk(sector domain.BucketedSector) domain.PV01[domain.BucketedSector] {
	var total float64
	for _, b := range sector.Products {
		if r, ok := s.Lookup(b.ProductID()); ok {
			total += r.Exposure()
		}
	}
	return domain.PV01[domain.BucketedSector]{Product: sector, PV01: total, Quantity: 1}
}

// BucketedRisk computes every configured sector.
func (s *RiskService) BucketedRisk() []domain.PV01[domain.BucketedSector] {
	sectors := s.ref.Sectors()
	out := make([]domain.PV01[domain.BucketedSector], 0, len(sectors))
	for _, sec := range sectors {
		out = append(out, s.GetBucketedRisk(sec))
	}
	return out
}

// PositionListener feeds position updates into AddPosition.
func (s *RiskService) PositionListener() soa.Listener[domain.Position] {
	return soa.OnAdd(s.AddPosition)
}
