package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// ArchiveBrowser lists archived objects and reads daily manifests.
type ArchiveBrowser interface {
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
	Manifest(ctx context.Context, day time.Time) ([]domain.ArchivedFile, error)
}

// ArchiveHandler lists history archives in object storage.
type ArchiveHandler struct {
	blobs  ArchiveBrowser
	prefix string
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. blobs may be nil when object
// storage is not configured.
func NewArchiveHandler(blobs ArchiveBrowser, prefix string, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{blobs: blobs, prefix: prefix, logger: logger}
}

// ListArchives GET /api/archives?day=2026-10-14
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}
	prefix := h.prefix
	if day := strings.TrimSpace(r.URL.Query().Get("day")); day != "" {
		prefix += day + "/"
	}
	objects, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		writeDomainError(w, r, h.logger, "list archives", err)
		return
	}

	opts := parseListOpts(r)
	total := len(objects)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)
	page := objects[start:end]
	if page == nil {
		page = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"archives": page,
		"count":    len(page),
		"total":    total,
	})
}

// GetManifest GET /api/archives/{day}/manifest
func (h *ArchiveHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage not configured")
		return
	}
	day, err := time.Parse(time.DateOnly, r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}
	files, err := h.blobs.Manifest(r.Context(), day)
	if err != nil {
		writeDomainError(w, r, h.logger, "get manifest", err)
		return
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day":   day.Format(time.DateOnly),
		"files": files,
		"bytes": total,
	})
}
