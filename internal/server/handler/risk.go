package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// RiskReader is the part of the risk service the handler reads.
type RiskReader interface {
	Lookup(productID string) (domain.PV01[domain.Bond], bool)
	BucketedRisk() []domain.PV01[domain.BucketedSector]
}

// RiskHandler serves PV01 risk endpoints.
type RiskHandler struct {
	risk   RiskReader
	logger *slog.Logger
}

func NewRiskHandler(risk RiskReader, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{risk: risk, logger: logger}
}

type riskView struct {
	Product  string  `json:"product"`
	PV01     float64 `json:"pv01"`
	Quantity int64   `json:"quantity"`
	Exposure float64 `json:"exposure"`
}

// GetRisk GET /api/risk/{id}
func (h *RiskHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	risk, ok := h.risk.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no risk for "+id)
		return
	}
	writeJSON(w, http.StatusOK, riskView{
		Product:  risk.Key(),
		PV01:     risk.PV01,
		Quantity: risk.Quantity,
		Exposure: risk.Exposure(),
	})
}

// ListBuckets GET /api/risk/buckets
func (h *RiskHandler) ListBuckets(w http.ResponseWriter, _ *http.Request) {
	buckets := h.risk.BucketedRisk()
	views := make([]riskView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, riskView{
			Product:  b.Key(),
			PV01:     b.PV01,
			Quantity: b.Quantity,
			Exposure: b.Exposure(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets": views})
}
