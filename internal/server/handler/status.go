package handler

import (
	"net/http"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// StatusHandler serves the desk status snapshot.
type StatusHandler struct {
	status func() domain.DeskStatus
}

func NewStatusHandler(status func() domain.DeskStatus) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}
