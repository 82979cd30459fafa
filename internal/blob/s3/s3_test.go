package s3blob

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

type upload struct {
	path      string
	body      string
	multipart bool
	meta      map[string]string
}

type fakeWriter struct{ uploads []upload }

func (w *fakeWriter) Put(_ context.Context, p string, r io.Reader, _ string, meta map[string]string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.uploads = append(w.uploads, upload{path: p, body: string(b), meta: meta})
	return nil
}

func (w *fakeWriter) PutMultipart(_ context.Context, p string, r io.Reader, _ int64, meta map[string]string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.uploads = append(w.uploads, upload{path: p, body: string(b), multipart: true, meta: meta})
	return nil
}

func TestArchiveHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "positions.txt"), []byte("a,b,\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "risk.txt"), []byte(strings.Repeat("x", 64)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip"), 0o644))

	w := &fakeWriter{}
	a := NewArchiver(w, ArchiverConfig{Prefix: "desk/", MultipartThreshold: 32},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	day := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)

	files, err := a.ArchiveHistory(context.Background(), dir, day)
	require.NoError(t, err)
	require.Len(t, files, 2)

	sum := blake2b.Sum256([]byte("a,b,\n"))
	assert.Equal(t, domain.ArchivedFile{
		Source: "positions.txt",
		Path:   "desk/history/2026-10-14/positions.txt",
		Size:   5,
		Digest: hex.EncodeToString(sum[:]),
	}, files[0])

	require.Len(t, w.uploads, 3)
	assert.False(t, w.uploads[0].multipart)
	assert.Equal(t, files[0].Digest, w.uploads[0].meta[MetaDigest])
	assert.True(t, w.uploads[1].multipart)
	assert.Equal(t, "desk/history/2026-10-14/manifest.json", w.uploads[2].path)

	var manifest []domain.ArchivedFile
	require.NoError(t, json.Unmarshal([]byte(w.uploads[2].body), &manifest))
	assert.Equal(t, files, manifest)
}

type storedDigests map[string]string

func (s storedDigests) StoredDigest(_ context.Context, key string) (string, error) {
	if key == "desk/history/2026-10-14/risk.txt" {
		return "", errors.New("timeout")
	}
	d, ok := s[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return d, nil
}

func TestArchiveHistory_SkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"positions.txt": "p,\n",
		"risk.txt":      "r,\n",
		"streaming.txt": "s,\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	_, posDigest, err := Digest(strings.NewReader("p,\n"))
	require.NoError(t, err)

	w := &fakeWriter{}
	a := NewArchiver(w, ArchiverConfig{
		Prefix: "desk/",
		Existing: storedDigests{
			"desk/history/2026-10-14/positions.txt": posDigest,
			"desk/history/2026-10-14/streaming.txt": "stale",
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	files, err := a.ArchiveHistory(context.Background(), dir, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "positions.txt", files[0].Source)
	assert.True(t, files[0].Unchanged)
	assert.False(t, files[1].Unchanged)
	assert.False(t, files[2].Unchanged)

	var paths []string
	for _, u := range w.uploads {
		paths = append(paths, u.path)
	}
	assert.Equal(t, []string{
		"desk/history/2026-10-14/risk.txt",
		"desk/history/2026-10-14/streaming.txt",
		"desk/history/2026-10-14/manifest.json",
	}, paths)
}

func TestDecodeManifest(t *testing.T) {
	files, err := decodeManifest(strings.NewReader(`[{"source":"risk.txt","path":"history/2026-10-14/risk.txt","size":3,"blake2b":"ab","unchanged":true}]`))
	require.NoError(t, err)
	assert.Equal(t, []domain.ArchivedFile{{
		Source: "risk.txt", Path: "history/2026-10-14/risk.txt", Size: 3, Digest: "ab", Unchanged: true,
	}}, files)

	_, err = decodeManifest(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestArchiveHistory_MissingDir(t *testing.T) {
	a := NewArchiver(&fakeWriter{}, ArchiverConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := a.ArchiveHistory(context.Background(), filepath.Join(t.TempDir(), "nope"), time.Now())
	assert.Error(t, err)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("http://localhost:9000", true))
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://s3.eu-west-1.amazonaws.com", normaliseEndpoint("https://s3.eu-west-1.amazonaws.com", false))
	assert.Equal(t, "http://10.0.0.5", normaliseEndpoint("10.0.0.5", false))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.False(t, isNotFound(errors.New("boom")))
}
