package s3blob

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

const (
	historyContentType = "text/plain; charset=utf-8"
	// HistoryRoot is the key prefix archives are written under.
	HistoryRoot = "history"
	// ManifestName is the per-day index of archived files.
	ManifestName = "manifest.json"
	// MetaDigest is the object metadata key carrying the blake2b-256 digest.
	MetaDigest = "blake2b"

	defaultMultipartThreshold int64 = 16 * 1024 * 1024
)

// ArchiverConfig tunes the archiver.
type ArchiverConfig struct {
	// Prefix is prepended to every key, e.g. "desk-a/".
	Prefix string
	// MultipartThreshold switches files at or above this size to a multipart
	// upload. Zero uses 16 MiB.
	MultipartThreshold int64
	// PartSize is the multipart part size. It is clamped to the S3 minimum.
	PartSize int64
	// Existing, when set, is consulted before each upload. Files whose stored
	// digest matches are not uploaded again.
	Existing DigestLookup
}

// DigestLookup reports the digest stored on an archived object.
type DigestLookup interface {
	StoredDigest(ctx context.Context, path string) (string, error)
}

// HistoryArchiver implements domain.Archiver by uploading each history file
// of a directory to history/<date>/<file>, followed by a JSON manifest.
type HistoryArchiver struct {
	writer domain.BlobWriter
	cfg    ArchiverConfig
	logger *slog.Logger
}

// NewArchiver creates a HistoryArchiver.
func NewArchiver(writer domain.BlobWriter, cfg ArchiverConfig, logger *slog.Logger) *HistoryArchiver {
	if cfg.MultipartThreshold <= 0 {
		cfg.MultipartThreshold = defaultMultipartThreshold
	}
	if cfg.PartSize <= 0 {
		cfg.PartSize = minPartSize
	}
	return &HistoryArchiver{
		writer: writer,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveHistory uploads every .txt file in dir for the given day. Empty
// files are skipped. The manifest is written last so its presence means the
// day is complete.
func (a *HistoryArchiver) ArchiveHistory(ctx context.Context, dir string, day time.Time) ([]domain.ArchivedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("s3blob: read history dir %s: %w", dir, err)
	}

	var archived []domain.ArchivedFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		f, ok, err := a.archiveFile(ctx, filepath.Join(dir, e.Name()), day)
		if err != nil {
			return archived, err
		}
		if ok {
			archived = append(archived, f)
		}
	}

	manifest, err := json.MarshalIndent(archived, "", "  ")
	if err != nil {
		return archived, fmt.Errorf("s3blob: encode manifest: %w", err)
	}
	key := ArchivePath(a.cfg.Prefix, day, ManifestName)
	if err := a.writer.Put(ctx, key, bytes.NewReader(manifest), "application/json", nil); err != nil {
		return archived, fmt.Errorf("s3blob: upload manifest: %w", err)
	}

	a.logger.InfoContext(ctx, "archiver: history archived",
		slog.String("day", day.Format(time.DateOnly)),
		slog.Int("files", len(archived)),
	)
	return archived, nil
}

func (a *HistoryArchiver) archiveFile(ctx context.Context, src string, day time.Time) (domain.ArchivedFile, bool, error) {
	f, err := os.Open(src)
	if err != nil {
		return domain.ArchivedFile{}, false, fmt.Errorf("s3blob: open %s: %w", src, err)
	}
	defer f.Close()

	size, digest, err := Digest(f)
	if err != nil {
		return domain.ArchivedFile{}, false, fmt.Errorf("s3blob: digest %s: %w", src, err)
	}
	if size == 0 {
		return domain.ArchivedFile{}, false, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return domain.ArchivedFile{}, false, fmt.Errorf("s3blob: rewind %s: %w", src, err)
	}

	name := filepath.Base(src)
	key := ArchivePath(a.cfg.Prefix, day, name)
	out := domain.ArchivedFile{Source: name, Path: key, Size: size, Digest: digest}
	if a.unchanged(ctx, key, digest) {
		out.Unchanged = true
		return out, true, nil
	}
	meta := map[string]string{MetaDigest: digest, "source": name}

	if size >= a.cfg.MultipartThreshold {
		err = a.writer.PutMultipart(ctx, key, f, a.cfg.PartSize, meta)
	} else {
		err = a.writer.Put(ctx, key, f, historyContentType, meta)
	}
	if err != nil {
		return domain.ArchivedFile{}, false, err
	}

	a.logger.DebugContext(ctx, "archiver: file uploaded",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return out, true, nil
}

// unchanged reports whether key already holds digest. Lookup failures other
// than a missing object are logged and treated as changed.
func (a *HistoryArchiver) unchanged(ctx context.Context, key, digest string) bool {
	if a.cfg.Existing == nil {
		return false
	}
	stored, err := a.cfg.Existing.StoredDigest(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false
	case err != nil:
		a.logger.WarnContext(ctx, "archiver: digest lookup failed, uploading",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	if stored != digest {
		return false
	}
	a.logger.DebugContext(ctx, "archiver: file unchanged", slog.String("key", key))
	return true
}

// ArchivePath builds "<prefix>history/<YYYY-MM-DD>/<name>".
func ArchivePath(prefix string, day time.Time, name string) string {
	return prefix + path.Join(HistoryRoot, day.UTC().Format(time.DateOnly), name)
}

// Digest returns the byte count and hex blake2b-256 digest of r.
func Digest(r io.Reader) (int64, string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

var _ domain.Archiver = (*HistoryArchiver)(nil)
