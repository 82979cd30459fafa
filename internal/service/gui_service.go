package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// DefaultGUIThrottle is the minimum gap between two GUI updates.
const DefaultGUIThrottle = 300 * time.Millisecond

// GUIService forwards a throttled sample of price updates to display
// connectors. Connector failures are logged and never reach the pricing chain.
type GUIService struct {
	*soa.Store[string, domain.Price]
	throttle   time.Duration
	now        func() time.Time
	connectors []soa.Connector[domain.Price]
	logger     *slog.Logger

	mu   sync.Mutex
	last time.Time
}

var _ soa.Service[string, domain.Price] = (*GUIService)(nil)

// NewGUIService creates a GUIService. A nil clock uses time.Now.
func NewGUIService(throttle time.Duration, now func() time.Time, logger *slog.Logger) *GUIService {
	if throttle <= 0 {
		throttle = DefaultGUIThrottle
	}
	if now == nil {
		now = time.Now
	}
	return &GUIService{
		Store:    soa.NewStore(domain.Price.Key),
		throttle: throttle,
		now:      now,
		logger:   logger,
	}
}

// AddConnector attaches a display connector.
func (s *GUIService) AddConnector(c soa.Connector[domain.Price]) {
	s.connectors = append(s.connectors, c)
}

// OnMessage stores the price and publishes it if the throttle window has
// elapsed since the last published update.
func (s *GUIService) OnMessage(ctx context.Context, p domain.Price) error {
	if !s.admit() {
		return nil
	}
	s.Put(p)
	for _, c := range s.connectors {
		if err := c.Publish(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "gui_service: publish failed",
				slog.String("product", p.Key()),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.NotifyAdd(ctx, p)
}

func (s *GUIService) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.throttle {
		return false
	}
	s.last = now
	return true
}

// PriceListener feeds PricingService updates into OnMessage.
func (s *GUIService) PriceListener() soa.Listener[domain.Price] {
	return soa.OnAdd(s.OnMessage)
}
