package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// ExecutionService is the record keeper for executions sent to a venue.
type ExecutionService struct {
	*soa.Store[string, domain.ExecutionOrder]
	tracer trace.Tracer
	logger *slog.Logger
}

var _ soa.Service[string, domain.ExecutionOrder] = (*ExecutionService)(nil)

// NewExecutionService creates an ExecutionService.
func NewExecutionService(logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		Store:  soa.NewStore(domain.ExecutionOrder.Key),
		tracer: telemetry.Tracer("execution"),
		logger: logger,
	}
}

// OnMessage stores the order by product.
func (s *ExecutionService) OnMessage(_ context.Context, order domain.ExecutionOrder) error {
	s.Put(order)
	return nil
}

// ExecuteOrder sends the order to a venue and records the confirmation.
func (s *ExecutionService) ExecuteOrder(ctx context.Context, order domain.ExecutionOrder, venue domain.Market) error {
	ctx, span := s.tracer.Start(ctx, "execution.execute_order", trace.WithAttributes(
		attribute.String("product", order.Key()),
		attribute.String("venue", venue.String()),
		attribute.String("side", order.Side.String()),
	))
	defer span.End()

	telemetry.ExecutionsFired.WithLabelValues(venue.String(), order.Side.String()).Inc()
	s.logger.InfoContext(ctx, "execution_service: order executed",
		slog.String("order_id", order.OrderID),
		slog.String("product", order.Key()),
		slog.String("venue", venue.String()),
		slog.String("type", order.OrderType.String()),
	)
	return s.ProcessExecution(ctx, order)
}

// ProcessExecution stores the order and notifies listeners.
func (s *ExecutionService) ProcessExecution(ctx context.Context, order domain.ExecutionOrder) error {
	s.Put(order)
	if err := s.NotifyAdd(ctx, order); err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		return err
	}
	return nil
}

// AlgoListener adapts the service to listen to AlgoExecutionService.
func (s *ExecutionService) AlgoListener() soa.Listener[AlgoExecution] {
	return soa.OnAdd(func(ctx context.Context, a AlgoExecution) error {
		if err := s.OnMessage(ctx, a.Order); err != nil {
			return err
		}
		return s.ExecuteOrder(ctx, a.Order, a.Venue)
	})
}
