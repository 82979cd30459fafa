package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/soa"
	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// DefaultQuotePrice is quoted on every received inquiry.
const DefaultQuotePrice = 100.0

// InquiryService negotiates customer inquiries:
//
//	RECEIVED -> QUOTED -> DONE
//
// REJECTED and CUSTOMER_REJECTED are reachable from any state, only through
// the reject calls.
type InquiryService struct {
	*soa.Store[string, domain.Inquiry]
	connector  soa.Connector[domain.Inquiry]
	onReject   []func(context.Context, domain.Inquiry)
	quotePrice float64
	logger     *slog.Logger
}

var _ soa.Service[string, domain.Inquiry] = (*InquiryService)(nil)

// NewInquiryService creates an InquiryService. A non-positive quote falls
// back to DefaultQuotePrice.
func NewInquiryService(quotePrice float64, logger *slog.Logger) *InquiryService {
	if quotePrice <= 0 {
		quotePrice = DefaultQuotePrice
	}
	return &InquiryService{
		Store:      soa.NewStore(domain.Inquiry.Key),
		quotePrice: quotePrice,
		logger:     logger,
	}
}

// SetConnector attaches the connector that quotes back to the customer.
func (s *InquiryService) SetConnector(c soa.Connector[domain.Inquiry]) { s.connector = c }

// OnReject registers fn to observe rejections. Observers are not listeners:
// a rejection is still never broadcast.
func (s *InquiryService) OnReject(fn func(context.Context, domain.Inquiry)) {
	s.onReject = append(s.onReject, fn)
}

// OnMessage drives the message path of the state machine. A received
// inquiry is priced and handed to the connector; a quoted inquiry is
// completed and broadcast. Other states are ignored.
func (s *InquiryService) OnMessage(ctx context.Context, inq domain.Inquiry) error {
	switch inq.State {
	case domain.InquiryReceived:
		inq.Price = s.quotePrice
		s.Put(inq)
		telemetry.InquiriesByState.WithLabelValues(inq.State.String()).Inc()
		if s.connector == nil {
			return nil
		}
		if err := s.connector.Publish(ctx, inq); err != nil {
			return fmt.Errorf("inquiry_service: publish %s: %w", inq.InquiryID, err)
		}
		return nil

	case domain.InquiryQuoted:
		inq.State = domain.InquiryDone
		s.Put(inq)
		telemetry.InquiriesByState.WithLabelValues(inq.State.String()).Inc()
		s.logger.InfoContext(ctx, "inquiry_service: inquiry done",
			slog.String("inquiry_id", inq.InquiryID),
			slog.String("product", inq.Product.ProductID()),
			slog.Float64("price", inq.Price),
		)
		return s.NotifyAdd(ctx, inq)

	default:
		s.logger.DebugContext(ctx, "inquiry_service: state ignored",
			slog.String("inquiry_id", inq.InquiryID),
			slog.String("state", inq.State.String()),
		)
		return nil
	}
}

// SendQuote overwrites the quoted price and notifies listeners. The state
// is left unchanged.
func (s *InquiryService) SendQuote(ctx context.Context, inquiryID string, price float64) error {
	inq, ok := s.Modify(inquiryID, func(inq *domain.Inquiry) { inq.Price = price })
	if !ok {
		return fmt.Errorf("inquiry_service: send quote %q: %w", inquiryID, domain.ErrNotFound)
	}
	return s.NotifyAdd(ctx, inq)
}

// RejectInquiry marks the inquiry REJECTED, whatever its state, without
// notifying.
func (s *InquiryService) RejectInquiry(ctx context.Context, inquiryID string) error {
	return s.reject(ctx, inquiryID, domain.InquiryRejected)
}

// CustomerRejectInquiry marks the inquiry CUSTOMER_REJECTED without notifying.
func (s *InquiryService) CustomerRejectInquiry(ctx context.Context, inquiryID string) error {
	return s.reject(ctx, inquiryID, domain.InquiryCustomerRejected)
}

func (s *InquiryService) reject(ctx context.Context, inquiryID string, to domain.InquiryState) error {
	var from domain.InquiryState
	inq, ok := s.Modify(inquiryID, func(inq *domain.Inquiry) {
		from = inq.State
		inq.State = to
	})
	if !ok {
		return fmt.Errorf("inquiry_service: reject %q: %w", inquiryID, domain.ErrNotFound)
	}
	telemetry.InquiriesByState.WithLabelValues(to.String()).Inc()
	s.logger.InfoContext(ctx, "inquiry_service: inquiry rejected",
		slog.String("inquiry_id", inquiryID),
		slog.String("from", from.String()),
		slog.String("state", to.String()),
	)
	for _, fn := range s.onReject {
		fn(ctx, inq)
	}
	return nil
}
