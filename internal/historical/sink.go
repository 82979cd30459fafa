package historical

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

// TimestampLayout is the millisecond timestamp that starts every line.
const TimestampLayout = "2006-01-02 15:04:05.000"

// FileNames maps each persisted category to its output file.
var FileNames = map[domain.EventCategory]string{
	domain.CategoryPosition:  "positions.txt",
	domain.CategoryRisk:      "risk.txt",
	domain.CategoryExecution: "executions.txt",
	domain.CategoryStreaming: "streaming.txt",
	domain.CategoryInquiry:   "allinquiries.txt",
}

// Line is one record handed to a sink.
type Line struct {
	Category domain.EventCategory
	Key      string
	Fields   []string
	At       time.Time
}

// Sink receives historical lines.
type Sink interface {
	Name() string
	Write(ctx context.Context, l Line) error
}

// FormatLine renders "timestamp,field1,field2,...,\n".
func FormatLine(at time.Time, fields []string) string {
	var b strings.Builder
	b.WriteString(at.Format(TimestampLayout))
	b.WriteByte(',')
	for _, f := range fields {
		b.WriteString(f)
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	return b.String()
}

// AppendLine appends one formatted line to path, creating it if needed.
func AppendLine(path string, at time.Time, fields []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(FormatLine(at, fields)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileSink appends lines to one text file per category under Dir.
type FileSink struct {
	dir string
	mu  sync.Mutex
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("historical: create output dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Name() string { return "file" }

// Dir is the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Path returns the file a category is written to.
func (s *FileSink) Path(cat domain.EventCategory) (string, error) {
	name, ok := FileNames[cat]
	if !ok {
		return "", fmt.Errorf("historical: %q: %w", cat, domain.ErrUnknownCategory)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileSink) Write(_ context.Context, l Line) error {
	path, err := s.Path(l.Category)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := AppendLine(path, l.At, l.Fields); err != nil {
		return fmt.Errorf("historical: append %s: %w", path, err)
	}
	return nil
}

// StoreSink writes lines into a domain.HistoryStore.
type StoreSink struct {
	store domain.HistoryStore
}

func NewStoreSink(store domain.HistoryStore) *StoreSink { return &StoreSink{store: store} }

func (s *StoreSink) Name() string { return "postgres" }

func (s *StoreSink) Write(ctx context.Context, l Line) error {
	return s.store.Insert(ctx, domain.HistoryRow{
		Category:   l.Category,
		Key:        l.Key,
		Fields:     l.Fields,
		RecordedAt: l.At,
	})
}
