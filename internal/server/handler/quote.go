package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// StreamReader is the part of the streaming service the handler reads.
type StreamReader interface {
	Lookup(productID string) (domain.PriceStream, bool)
}

// QuoteHandler serves the latest two-way stream per product. The quote cache
// is consulted first when configured.
type QuoteHandler struct {
	cache   domain.QuoteCache
	streams StreamReader
	logger  *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler. cache may be nil.
func NewQuoteHandler(cache domain.QuoteCache, streams StreamReader, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{cache: cache, streams: streams, logger: logger}
}

type quoteView struct {
	Stream domain.PriceStream `json:"stream"`
	Source string             `json:"source"`
	At     *time.Time         `json:"ts,omitempty"`
}

// GetQuote GET /api/quotes/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.cache != nil {
		stream, at, err := h.cache.GetQuote(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, quoteView{Stream: stream, Source: "cache", At: &at})
			return
		case !errors.Is(err, domain.ErrNotFound):
			h.logger.WarnContext(r.Context(), "handler: quote cache read failed",
				slog.String("product", id),
				slog.String("error", err.Error()),
			)
		}
	}
	stream, ok := h.streams.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no quote for "+id)
		return
	}
	writeJSON(w, http.StatusOK, quoteView{Stream: stream, Source: "desk"})
}
