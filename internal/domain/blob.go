package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string            `json:"path"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string, meta map[string]string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64, meta map[string]string) error
}

// ArchiveReader browses archived history.
type ArchiveReader interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	// StoredDigest returns the digest recorded on an archived object, or
	// ErrNotFound.
	StoredDigest(ctx context.Context, path string) (string, error)
	Manifest(ctx context.Context, day time.Time) ([]ArchivedFile, error)
}

// ArchivedFile is one history file copied to object storage.
type ArchivedFile struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"blake2b"`
	// Unchanged is set when the stored copy already had this digest and the
	// upload was skipped.
	Unchanged bool `json:"unchanged,omitempty"`
}

// Archiver copies history files to cold storage.
type Archiver interface {
	ArchiveHistory(ctx context.Context, dir string, day time.Time) ([]ArchivedFile, error)
}
