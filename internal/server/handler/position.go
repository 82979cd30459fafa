package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// PositionReader is the part of the position service the handler reads.
type PositionReader interface {
	Positions() []domain.Position
	Lookup(productID string) (domain.Position, bool)
}

// PositionHandler serves position endpoints.
type PositionHandler struct {
	positions PositionReader
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionReader, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logger}
}

type positionView struct {
	domain.Position
	Aggregate int64 `json:"aggregate"`
}

// ListPositions returns every position ordered by product id.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, _ *http.Request) {
	positions := h.positions.Positions()
	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, positionView{Position: p, Aggregate: p.Aggregate()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": views,
		"count":     len(views),
	})
}

// GetPosition GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.positions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no position for "+id)
		return
	}
	writeJSON(w, http.StatusOK, positionView{Position: p, Aggregate: p.Aggregate()})
}
