package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// BookReader is the part of the market data service the handler reads.
type BookReader interface {
	Lookup(productID string) (domain.OrderBook, bool)
	GetBestBidOffer(productID string) (domain.BidOffer, error)
	AggregateDepth(productID string) domain.OrderBook
}

// BookHandler serves order book endpoints.
type BookHandler struct {
	books  BookReader
	logger *slog.Logger
}

func NewBookHandler(books BookReader, logger *slog.Logger) *BookHandler {
	return &BookHandler{books: books, logger: logger}
}

// GetBBO GET /api/books/{id}/bbo
func (h *BookHandler) GetBBO(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	bo, err := h.books.GetBestBidOffer(id)
	if err != nil {
		writeDomainError(w, r, h.logger, "get bbo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": id,
		"bid":     bo.Bid,
		"offer":   bo.Offer,
		"spread":  bo.Spread(),
	})
}

// GetDepth GET /api/books/{id}/depth
func (h *BookHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.books.Lookup(id); !ok {
		writeError(w, http.StatusNotFound, "no book for "+id)
		return
	}
	writeJSON(w, http.StatusOK, h.books.AggregateDepth(id))
}
