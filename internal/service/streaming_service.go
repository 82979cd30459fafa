package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// PricingService holds the desk's mid and spread per product.
type PricingService struct {
	*soa.Store[string, domain.Price]
	logger *slog.Logger
}

var _ soa.Service[string, domain.Price] = (*PricingService)(nil)

// NewPricingService creates a PricingService.
func NewPricingService(logger *slog.Logger) *PricingService {
	return &PricingService{Store: soa.NewStore(domain.Price.Key), logger: logger}
}

// OnMessage stores the price and notifies listeners.
func (s *PricingService) OnMessage(ctx context.Context, p domain.Price) error {
	s.Put(p)
	return s.NotifyAdd(ctx, p)
}

// AlgoStream wraps a stream produced by AlgoStreamingService.
type AlgoStream struct {
	Stream domain.PriceStream `json:"stream"`
}

func (a AlgoStream) Key() string { return a.Stream.Key() }

const streamBaseQuantity int64 = 10_000_000

// AlgoStreamingService turns prices into two-way streams, alternating the
// visible size between one and two lots of ten million.
type AlgoStreamingService struct {
	*soa.Store[string, AlgoStream]
	logger *slog.Logger

	mu      sync.Mutex
	counter int64
}

var _ soa.Service[string, AlgoStream] = (*AlgoStreamingService)(nil)

// NewAlgoStreamingService creates an AlgoStreamingService.
func NewAlgoStreamingService(logger *slog.Logger) *AlgoStreamingService {
	return &AlgoStreamingService{Store: soa.NewStore(AlgoStream.Key), logger: logger}
}

// OnMessage stores the stream without notifying.
func (s *AlgoStreamingService) OnMessage(_ context.Context, a AlgoStream) error {
	s.Put(a)
	return nil
}

// PublishAlgorithmicPrice builds a stream around the mid and notifies listeners.
func (s *AlgoStreamingService) PublishAlgorithmicPrice(ctx context.Context, p domain.Price) error {
	s.mu.Lock()
	n := s.counter
	s.counter++
	s.mu.Unlock()

	visible := (n%2 + 1) * streamBaseQuantity
	hidden := 2 * visible
	half := p.BidOfferSpread / 2

	a := AlgoStream{Stream: domain.PriceStream{
		Product: p.Product,
		Bid: domain.PriceStreamOrder{
			Price:           p.Mid - half,
			VisibleQuantity: visible,
			HiddenQuantity:  hidden,
			Side:            domain.PricingSideBid,
		},
		Offer: domain.PriceStreamOrder{
			Price:           p.Mid + half,
			VisibleQuantity: visible,
			HiddenQuantity:  hidden,
			Side:            domain.PricingSideOffer,
		},
	}}
	s.Put(a)
	return s.NotifyAdd(ctx, a)
}

// PriceListener feeds PricingService updates into PublishAlgorithmicPrice.
func (s *AlgoStreamingService) PriceListener() soa.Listener[domain.Price] {
	return soa.OnAdd(s.PublishAlgorithmicPrice)
}

// StreamingService republishes algo streams to listeners and an optional
// outbound connector.
type StreamingService struct {
	*soa.Store[string, domain.PriceStream]
	connector soa.Connector[domain.PriceStream]
	logger    *slog.Logger
}

var _ soa.Service[string, domain.PriceStream] = (*StreamingService)(nil)

// NewStreamingService creates a StreamingService.
func NewStreamingService(logger *slog.Logger) *StreamingService {
	return &StreamingService{Store: soa.NewStore(domain.PriceStream.Key), logger: logger}
}

// SetConnector attaches the outbound connector.
func (s *StreamingService) SetConnector(c soa.Connector[domain.PriceStream]) { s.connector = c }

// OnMessage stores the stream without notifying.
func (s *StreamingService) OnMessage(_ context.Context, ps domain.PriceStream) error {
	s.Put(ps)
	return nil
}

// PublishPrice notifies listeners and pushes the stream outward.
func (s *StreamingService) PublishPrice(ctx context.Context, ps domain.PriceStream) error {
	if err := s.NotifyAdd(ctx, ps); err != nil {
		return err
	}
	if s.connector == nil {
		return nil
	}
	if err := s.connector.Publish(ctx, ps); err != nil {
		return fmt.Errorf("streaming_service: publish %s: %w", ps.Key(), err)
	}
	return nil
}

// AlgoStreamListener stores and republishes every algo stream.
func (s *StreamingService) AlgoStreamListener() soa.Listener[AlgoStream] {
	return soa.OnAdd(func(ctx context.Context, a AlgoStream) error {
		if err := s.OnMessage(ctx, a.Stream); err != nil {
			return err
		}
		return s.PublishPrice(ctx, a.Stream)
	})
}
