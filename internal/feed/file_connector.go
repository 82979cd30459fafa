package feed

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/historical"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

// FileConnector is a publish-only connector appending history-format lines
// to a single file, e.g. gui.txt.
type FileConnector[V domain.Record] struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileConnector writes to path. A nil clock uses time.Now.
func NewFileConnector[V domain.Record](path string, now func() time.Time) *FileConnector[V] {
	if now == nil {
		now = time.Now
	}
	return &FileConnector[V]{path: path, now: now}
}

func (c *FileConnector[V]) Publish(_ context.Context, v V) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := historical.AppendLine(c.path, c.now(), v.Fields()); err != nil {
		return fmt.Errorf("feed: append %s: %w", c.path, err)
	}
	return nil
}

func (c *FileConnector[V]) Subscribe(context.Context, io.Reader) error {
	return soa.ErrSubscribeUnsupported
}

// FuncConnector is a publish-only connector backed by a function.
type FuncConnector[V any] func(ctx context.Context, v V) error

func (f FuncConnector[V]) Publish(ctx context.Context, v V) error { return f(ctx, v) }

func (f FuncConnector[V]) Subscribe(context.Context, io.Reader) error {
	return soa.ErrSubscribeUnsupported
}
