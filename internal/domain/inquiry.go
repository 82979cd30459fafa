package domain

import (
	"fmt"
	"strconv"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// InquiryState tracks a customer RFQ through negotiation.
type InquiryState string

const (
	InquiryReceived         InquiryState = "RECEIVED"
	InquiryQuoted           InquiryState = "QUOTED"
	InquiryDone             InquiryState = "DONE"
	InquiryRejected         InquiryState = "REJECTED"
	InquiryCustomerRejected InquiryState = "CUSTOMER_REJECTED"
)

func (s InquiryState) String() string { return string(s) }

// Terminal reports whether no further transition is allowed.
func (s InquiryState) Terminal() bool {
	switch s {
	case InquiryDone, InquiryRejected, InquiryCustomerRejected:
		return true
	}
	return false
}

// ParseInquiryState accepts any of the five states.
func ParseInquiryState(s string) (InquiryState, error) {
	switch InquiryState(s) {
	case InquiryReceived, InquiryQuoted, InquiryDone, InquiryRejected, InquiryCustomerRejected:
		return InquiryState(s), nil
	}
	return "", fmt.Errorf("domain: parse inquiry state %q: %w", s, ErrMalformedRecord)
}

// Inquiry is a customer request for quote.
type Inquiry struct {
	InquiryID string       `json:"inquiry_id"`
	Product   Bond         `json:"product"`
	Side      Side         `json:"side"`
	Quantity  int64        `json:"quantity"`
	Price     float64      `json:"price"`
	State     InquiryState `json:"state"`
}

func (i Inquiry) Key() string { return i.InquiryID }

func (i Inquiry) Fields() []string {
	return []string{
		i.InquiryID,
		i.Product.ProductID(),
		i.Side.String(),
		strconv.FormatInt(i.Quantity, 10),
		pricetick.Format(i.Price),
		i.State.String(),
	}
}
