package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/pricetick"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// Event names accepted by the notify.events filter.
const (
	EventExecution       = "execution"
	EventInquiryDone     = "inquiry_done"
	EventInquiryRejected = "inquiry_rejected"
)

// Alerts turns desk activity into notifications. Delivery failures are
// logged by the Notifier and never reach the desk.
type Alerts struct {
	n      *Notifier
	venue  string
	logger *slog.Logger
}

// NewAlerts creates Alerts for executions routed to venue.
func NewAlerts(n *Notifier, venue string, logger *slog.Logger) *Alerts {
	return &Alerts{n: n, venue: venue, logger: logger}
}

// ExecutionListener alerts on every execution order.
func (a *Alerts) ExecutionListener() soa.Listener[domain.ExecutionOrder] {
	return soa.OnAdd(func(ctx context.Context, o domain.ExecutionOrder) error {
		title, msg := ExecutionMessage(o, a.venue)
		a.send(ctx, EventExecution, title, msg)
		return nil
	})
}

// InquiryListener alerts on inquiries broadcast in the DONE state.
func (a *Alerts) InquiryListener() soa.Listener[domain.Inquiry] {
	return soa.OnAdd(func(ctx context.Context, inq domain.Inquiry) error {
		if inq.State == domain.InquiryDone {
			title, msg := InquiryMessage(inq)
			a.send(ctx, EventInquiryDone, title, msg)
		}
		return nil
	})
}

// InquiryRejected alerts on a rejection. It fits InquiryService.OnReject.
func (a *Alerts) InquiryRejected(ctx context.Context, inq domain.Inquiry) {
	title, msg := InquiryMessage(inq)
	a.send(ctx, EventInquiryRejected, title, msg)
}

func (a *Alerts) send(ctx context.Context, event, title, msg string) {
	if !a.n.Enabled() {
		return
	}
	_ = a.n.Notify(ctx, event, title, msg)
}

// ExecutionMessage renders an execution alert.
func ExecutionMessage(o domain.ExecutionOrder, venue string) (string, string) {
	title := fmt.Sprintf("Execution %s %s", o.Side, o.Product.Ticker)
	msg := fmt.Sprintf("%s %d @ %s on %s (order %s)",
		o.Product.ProductID(), o.Quantity(), pricetick.Format(o.Price), venue, o.OrderID)
	return title, msg
}

// InquiryMessage renders an inquiry alert.
func InquiryMessage(inq domain.Inquiry) (string, string) {
	title := fmt.Sprintf("Inquiry %s %s", inq.InquiryID, inq.State)
	msg := fmt.Sprintf("%s %s %d @ %s",
		inq.Product.ProductID(), inq.Side, inq.Quantity, pricetick.Format(inq.Price))
	return title, msg
}
