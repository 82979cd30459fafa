package historical

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

var fixed = time.Date(2026, 3, 4, 9, 30, 15, 123_000_000, time.UTC)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "2026-03-04 09:30:15.123,a,b,\n", FormatLine(fixed, []string{"a", "b"}))
	assert.Equal(t, "2026-03-04 09:30:15.123,\n", FormatLine(fixed, nil))
}

func TestService_PersistsPositions(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)

	svc := New[domain.Position](domain.CategoryPosition, quiet(), sink).WithClock(func() time.Time { return fixed })
	pos := domain.NewPosition(domain.Bond{ID: "91282CLW9"})
	pos.Add("TRSY1", 100)
	pos.Add("TRSY2", -30)

	ctx := context.Background()
	require.NoError(t, svc.ProcessAdd(ctx, pos))
	require.NoError(t, svc.ProcessAdd(ctx, pos))

	data, err := os.ReadFile(filepath.Join(dir, "positions.txt"))
	require.NoError(t, err)
	line := "2026-03-04 09:30:15.123,91282CLW9,TRSY1,100,TRSY2,-30,\n"
	assert.Equal(t, line+line, string(data))

	_, ok := svc.Lookup("91282CLW9")
	assert.True(t, ok)
}

func TestService_UnknownCategoryIsSkipped(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	svc := New[domain.Trade](domain.CategoryTrade, quiet(), sink)
	assert.NoError(t, svc.ProcessAdd(context.Background(), domain.Trade{TradeID: "T1"}))

	_, err = sink.Path(domain.CategoryTrade)
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestService_UnopenableFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	require.NoError(t, err)
	// a directory where the file should be makes the open fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "risk.txt"), 0o755))

	svc := New[domain.PV01[domain.Bond]](domain.CategoryRisk, quiet(), sink)
	assert.NoError(t, svc.ProcessAdd(context.Background(), domain.PV01[domain.Bond]{Product: domain.Bond{ID: "X"}}))
}

type recordingSink struct {
	lines []Line
	err   error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Write(_ context.Context, l Line) error {
	r.lines = append(r.lines, l)
	return r.err
}

func TestService_FailingSinkDoesNotStopOthers(t *testing.T) {
	bad := &recordingSink{err: errors.New("down")}
	good := &recordingSink{}
	svc := New[domain.Inquiry](domain.CategoryInquiry, quiet(), bad, good)

	svc.PersistData(context.Background(), "INQ1", domain.Inquiry{InquiryID: "INQ1", State: domain.InquiryDone})
	require.Len(t, good.lines, 1)
	assert.Equal(t, "INQ1", good.lines[0].Key)
	assert.Equal(t, domain.CategoryInquiry, good.lines[0].Category)
	assert.Len(t, bad.lines, 1)
}

type memHistory struct{ rows []domain.HistoryRow }

func (m *memHistory) Insert(_ context.Context, row domain.HistoryRow) error {
	m.rows = append(m.rows, row)
	return nil
}

func (m *memHistory) List(context.Context, domain.EventCategory, domain.ListOpts) ([]domain.HistoryRow, error) {
	return m.rows, nil
}

func TestStoreSink(t *testing.T) {
	store := &memHistory{}
	sink := NewStoreSink(store)
	require.NoError(t, sink.Write(context.Background(), Line{Category: domain.CategoryRisk, Key: "K", Fields: []string{"a"}, At: fixed}))
	require.Len(t, store.rows, 1)
	assert.Equal(t, fixed, store.rows[0].RecordedAt)
	assert.Equal(t, []string{"a"}, store.rows[0].Fields)
}
