package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// route serves one request through a mux so path values resolve.
func route(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var us2y = domain.Bond{ID: "91282CLY5", Ticker: "US2Y"}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(fmt.Errorf("x: %w", domain.ErrNotFound)))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrEmptyBook))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrUnknownProduct))
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrInvalidTransition))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrMalformedRecord))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestParseListOpts(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=3", nil)
	assert.Equal(t, domain.ListOpts{Limit: 500, Offset: 3}, parseListOpts(r))
	r = httptest.NewRequest(http.MethodGet, "/?limit=x&offset=-1", nil)
	assert.Equal(t, domain.ListOpts{Limit: 50}, parseListOpts(r))
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	}, quiet())
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"redis": "ok", "postgres": "connection refused"}, body["dependencies"])
}

func TestHealthCheck_NoDependencies(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(nil, quiet()).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestGetStatus(t *testing.T) {
	h := NewStatusHandler(func() domain.DeskStatus { return domain.DeskStatus{Mode: "serve", Positions: 2} })
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	body := decode(t, rec)
	assert.Equal(t, "serve", body["mode"])
	assert.Equal(t, 2.0, body["positions"])
}

type fakePositions map[string]domain.Position

func (f fakePositions) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(f))
	for _, p := range f {
		out = append(out, p)
	}
	return out
}

func (f fakePositions) Lookup(id string) (domain.Position, bool) {
	p, ok := f[id]
	return p, ok
}

func TestPositions(t *testing.T) {
	pos := domain.NewPosition(us2y)
	pos.Add("TRSY1", 1_000_000)
	pos.Add("TRSY2", -400_000)
	h := NewPositionHandler(fakePositions{us2y.ID: pos}, quiet())

	rec := route("GET /api/positions/{id}", h.GetPosition, httptest.NewRequest(http.MethodGet, "/api/positions/"+us2y.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 600_000.0, decode(t, rec)["aggregate"])

	rec = route("GET /api/positions/{id}", h.GetPosition, httptest.NewRequest(http.MethodGet, "/api/positions/NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ListPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	assert.Equal(t, 1.0, decode(t, rec)["count"])
}

type fakeRisk struct{}

func (fakeRisk) Lookup(id string) (domain.PV01[domain.Bond], bool) {
	if id != us2y.ID {
		return domain.PV01[domain.Bond]{}, false
	}
	return domain.PV01[domain.Bond]{Product: us2y, PV01: 0.02, Quantity: 1000}, true
}

func (fakeRisk) BucketedRisk() []domain.PV01[domain.BucketedSector] {
	return []domain.PV01[domain.BucketedSector]{{
		Product:  domain.BucketedSector{Name: "FrontEnd"},
		PV01:     0.05,
		Quantity: 10,
	}}
}

func TestRisk(t *testing.T) {
	h := NewRiskHandler(fakeRisk{}, quiet())
	rec := route("GET /api/risk/{id}", h.GetRisk, httptest.NewRequest(http.MethodGet, "/api/risk/"+us2y.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 20.0, body["exposure"], 1e-9)
	assert.Equal(t, us2y.ID, body["product"])

	rec = httptest.NewRecorder()
	h.ListBuckets(rec, httptest.NewRequest(http.MethodGet, "/api/risk/buckets", nil))
	buckets := decode(t, rec)["buckets"].([]any)
	require.Len(t, buckets, 1)
	assert.Equal(t, "FrontEnd", buckets[0].(map[string]any)["product"])
}

type fakeBooks struct{ book domain.OrderBook }

func (f fakeBooks) Lookup(id string) (domain.OrderBook, bool) {
	return f.book, id == f.book.Product.ID
}

func (f fakeBooks) GetBestBidOffer(id string) (domain.BidOffer, error) {
	if id != f.book.Product.ID {
		return domain.BidOffer{}, fmt.Errorf("market_data: %w", domain.ErrNotFound)
	}
	return domain.BidOffer{Bid: f.book.Bids[0], Offer: f.book.Offers[0]}, nil
}

func (f fakeBooks) AggregateDepth(string) domain.OrderBook { return f.book }

func TestBooks(t *testing.T) {
	h := NewBookHandler(fakeBooks{book: domain.OrderBook{
		Product: us2y,
		Bids:    []domain.Order{{Price: 99.5, Quantity: 10, Side: domain.PricingSideBid}},
		Offers:  []domain.Order{{Price: 99.75, Quantity: 10, Side: domain.PricingSideOffer}},
	}}, quiet())

	rec := route("GET /api/books/{id}/bbo", h.GetBBO, httptest.NewRequest(http.MethodGet, "/api/books/"+us2y.ID+"/bbo", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.25, decode(t, rec)["spread"])

	rec = route("GET /api/books/{id}/bbo", h.GetBBO, httptest.NewRequest(http.MethodGet, "/api/books/NOPE/bbo", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = route("GET /api/books/{id}/depth", h.GetDepth, httptest.NewRequest(http.MethodGet, "/api/books/NOPE/depth", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeQuoteCache struct {
	stream domain.PriceStream
	err    error
}

func (f fakeQuoteCache) SetQuote(context.Context, domain.PriceStream, time.Time) error { return nil }

func (f fakeQuoteCache) GetQuote(context.Context, string) (domain.PriceStream, time.Time, error) {
	return f.stream, time.Unix(0, 0), f.err
}

type fakeStreams map[string]domain.PriceStream

func (f fakeStreams) Lookup(id string) (domain.PriceStream, bool) {
	s, ok := f[id]
	return s, ok
}

func TestQuote_CacheThenFallback(t *testing.T) {
	stream := domain.PriceStream{Product: us2y}
	req := func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/quotes/"+us2y.ID, nil) }

	h := NewQuoteHandler(fakeQuoteCache{stream: stream}, fakeStreams{}, quiet())
	rec := route("GET /api/quotes/{id}", h.GetQuote, req())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", decode(t, rec)["source"])

	h = NewQuoteHandler(fakeQuoteCache{err: domain.ErrNotFound}, fakeStreams{us2y.ID: stream}, quiet())
	rec = route("GET /api/quotes/{id}", h.GetQuote, req())
	assert.Equal(t, "desk", decode(t, rec)["source"])

	h = NewQuoteHandler(nil, fakeStreams{}, quiet())
	rec = route("GET /api/quotes/{id}", h.GetQuote, req())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeDesk struct {
	inq    map[string]domain.Inquiry
	quoted float64
}

func (f *fakeDesk) Lookup(id string) (domain.Inquiry, bool) {
	i, ok := f.inq[id]
	return i, ok
}

func (f *fakeDesk) SendQuote(_ context.Context, id string, price float64) error {
	i, ok := f.inq[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.quoted = price
	i.Price = price
	f.inq[id] = i
	return nil
}

func (f *fakeDesk) setState(id string, s domain.InquiryState) error {
	i, ok := f.inq[id]
	if !ok {
		return domain.ErrNotFound
	}
	i.State = s
	f.inq[id] = i
	return nil
}

func (f *fakeDesk) RejectInquiry(_ context.Context, id string) error {
	return f.setState(id, domain.InquiryRejected)
}

func (f *fakeDesk) CustomerRejectInquiry(_ context.Context, id string) error {
	return f.setState(id, domain.InquiryCustomerRejected)
}

func newDesk() *fakeDesk {
	return &fakeDesk{inq: map[string]domain.Inquiry{
		"INQ1": {InquiryID: "INQ1", Product: us2y, State: domain.InquiryReceived},
		"INQ2": {InquiryID: "INQ2", Product: us2y, State: domain.InquiryDone},
	}}
}

func post(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
}

func TestInquiry_SendQuote(t *testing.T) {
	desk := newDesk()
	h := NewInquiryHandler(desk, quiet())
	const pattern = "POST /api/inquiries/{id}/quote"

	rec := route(pattern, h.SendQuote, post("/api/inquiries/INQ1/quote", `{"price":"99-16+"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 99.515625, desk.quoted, 1e-12)

	rec = route(pattern, h.SendQuote, post("/api/inquiries/INQ1/quote", `{"price":"100.25"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.25, desk.quoted)

	rec = route(pattern, h.SendQuote, post("/api/inquiries/INQ1/quote", `{"price":"abc"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = route(pattern, h.SendQuote, post("/api/inquiries/NOPE/quote", `{"price":"100"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInquiry_Reject(t *testing.T) {
	desk := newDesk()
	h := NewInquiryHandler(desk, quiet())
	const pattern = "POST /api/inquiries/{id}/reject"

	rec := route(pattern, h.Reject, post("/api/inquiries/INQ1/reject", `{"by":"customer"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CUSTOMER_REJECTED", decode(t, rec)["state"])

	rec = route(pattern, h.Reject, post("/api/inquiries/INQ2/reject", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REJECTED", decode(t, rec)["state"])

	rec = route(pattern, h.Reject, post("/api/inquiries/INQ1/reject", `{"by":"nobody"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeArchives struct {
	prefix    string
	out       []domain.BlobInfo
	manifests map[string][]domain.ArchivedFile
}

func (f *fakeArchives) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	f.prefix = prefix
	return f.out, nil
}

func (f *fakeArchives) Manifest(_ context.Context, day time.Time) ([]domain.ArchivedFile, error) {
	m, ok := f.manifests[day.Format(time.DateOnly)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func TestListArchives(t *testing.T) {
	rec := httptest.NewRecorder()
	NewArchiveHandler(nil, "history/", quiet()).ListArchives(rec, httptest.NewRequest(http.MethodGet, "/api/archives", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	lister := &fakeArchives{out: []domain.BlobInfo{{Path: "a"}, {Path: "b"}, {Path: "c"}}}
	rec = httptest.NewRecorder()
	NewArchiveHandler(lister, "history/", quiet()).ListArchives(rec,
		httptest.NewRequest(http.MethodGet, "/api/archives?day=2026-10-14&limit=2&offset=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "history/2026-10-14/", lister.prefix)
	body := decode(t, rec)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, 3.0, body["total"])
}

func TestGetManifest(t *testing.T) {
	const pattern = "GET /api/archives/{day}/manifest"
	h := NewArchiveHandler(&fakeArchives{manifests: map[string][]domain.ArchivedFile{
		"2026-10-14": {
			{Source: "positions.txt", Size: 10},
			{Source: "risk.txt", Size: 5, Unchanged: true},
		},
	}}, "history/", quiet())

	rec := route(pattern, h.GetManifest, httptest.NewRequest(http.MethodGet, "/api/archives/2026-10-14/manifest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "2026-10-14", body["day"])
	assert.Equal(t, 15.0, body["bytes"])
	assert.Len(t, body["files"], 2)

	rec = route(pattern, h.GetManifest, httptest.NewRequest(http.MethodGet, "/api/archives/2026-10-13/manifest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = route(pattern, h.GetManifest, httptest.NewRequest(http.MethodGet, "/api/archives/yesterday/manifest", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
