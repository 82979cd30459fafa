package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

// InquiryDesk is the part of the inquiry service the handler drives.
type InquiryDesk interface {
	Lookup(inquiryID string) (domain.Inquiry, bool)
	SendQuote(ctx context.Context, inquiryID string, price float64) error
	RejectInquiry(ctx context.Context, inquiryID string) error
	CustomerRejectInquiry(ctx context.Context, inquiryID string) error
}

// InquiryHandler serves inquiry endpoints.
type InquiryHandler struct {
	desk   InquiryDesk
	logger *slog.Logger
}

func NewInquiryHandler(desk InquiryDesk, logger *slog.Logger) *InquiryHandler {
	return &InquiryHandler{desk: desk, logger: logger}
}

// GetInquiry GET /api/inquiries/{id}
func (h *InquiryHandler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inq, ok := h.desk.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no inquiry "+id)
		return
	}
	writeJSON(w, http.StatusOK, inq)
}

// quoteRequest carries the price either in tick notation ("99-16+") or as a
// decimal ("99.515625").
type quoteRequest struct {
	Price string `json:"price"`
}

// SendQuote POST /api/inquiries/{id}/quote
func (h *InquiryHandler) SendQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price "+strconv.Quote(req.Price))
		return
	}
	if err := h.desk.SendQuote(r.Context(), id, price); err != nil {
		writeDomainError(w, r, h.logger, "send quote", err)
		return
	}
	inq, _ := h.desk.Lookup(id)
	writeJSON(w, http.StatusOK, inq)
}

type rejectRequest struct {
	// By is "desk" (default) or "customer".
	By string `json:"by"`
}

// Reject POST /api/inquiries/{id}/reject
func (h *InquiryHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var err error
	switch req.By {
	case "", "desk":
		err = h.desk.RejectInquiry(r.Context(), id)
	case "customer":
		err = h.desk.CustomerRejectInquiry(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "by must be desk or customer")
		return
	}
	if err != nil {
		writeDomainError(w, r, h.logger, "reject inquiry", err)
		return
	}
	inq, _ := h.desk.Lookup(id)
	writeJSON(w, http.StatusOK, inq)
}

func parsePrice(s string) (float64, error) {
	if p, err := pricetick.Parse(s); err == nil {
		return p, nil
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, fmt.Errorf("price %v out of range", p)
	}
	return p, nil
}
