package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondtrader/internal/domain"
	"github.com/alanyoungcy/bondtrader/internal/refdata"
	"github.com/alanyoungcy/bondtrader/internal/service"
	"github.com/alanyoungcy/bondtrader/internal/soa"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const us2y = "91282CLY5"

func TestPriceConnector(t *testing.T) {
	pricing := service.NewPricingService(quiet())
	c := NewPriceConnector(pricing, refdata.MustStatic(), quiet())

	input := strings.Join([]string{
		us2y + ",99-16,99-161",
		"bad line",
		us2y + ",99-xx,99-16",
		"91282CLW9, 100-00 , 100-01",
	}, "\n")
	st, err := c.Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Feed: FeedPrices, Records: 2, Skipped: 2}, st)

	p := pricing.GetData(us2y)
	assert.InDelta(t, 99.5+1.0/512, p.Mid, 1e-12)
	assert.InDelta(t, 1.0/256, p.BidOfferSpread, 1e-12)
	assert.Equal(t, "US2Y", p.Product.Ticker)
	assert.InDelta(t, 1.0/32, pricing.GetData("91282CLW9").BidOfferSpread, 1e-12)
}

func TestPriceConnector_UnknownProductAborts(t *testing.T) {
	pricing := service.NewPricingService(quiet())
	c := NewPriceConnector(pricing, refdata.MustStatic(), quiet())
	err := c.Subscribe(context.Background(), strings.NewReader("NOPE,99-00,99-01\n"+us2y+",99-00,99-01"))
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
	assert.Equal(t, 0, pricing.Len())
}

func TestTradeConnector(t *testing.T) {
	tb := service.NewTradeBookingService(quiet())
	rec := &soa.Recorder[domain.Trade]{}
	tb.AddListener(rec)
	c := NewTradeConnector(tb, refdata.MustStatic(), quiet())

	input := us2y + ",T1,99-00,TRSY1,1000000,BUY\n" +
		us2y + ",T2,100-00,TRSY2,2000000,SELL\n" +
		us2y + ",T3,100-00,TRSY2,-5,SELL\n" +
		us2y + ",T4,100-00,TRSY2,5,HOLD\n"
	st, err := c.Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 2, st.Skipped)

	require.Len(t, rec.Added, 2)
	assert.Equal(t, domain.Trade{
		Product:  rec.Added[0].Product,
		TradeID:  "T1",
		Price:    99,
		Book:     "TRSY1",
		Quantity: 1000000,
		Side:     domain.SideBuy,
	}, rec.Added[0])
	assert.Equal(t, domain.SideSell, rec.Added[1].Side)
}

func TestMarketDataConnector_Batches(t *testing.T) {
	md := service.NewMarketDataService(2, quiet())
	rec := &soa.Recorder[domain.OrderBook]{}
	md.AddListener(rec)
	c := NewMarketDataConnector(md, refdata.MustStatic(), quiet())

	lines := []string{
		us2y + ",99-31,10,BID",
		us2y + ",100-01,10,OFFER",
		us2y + ",99-30,20,BID",
		"garbage",
		us2y + ",100-02,20,OFFER",
		us2y + ",99-00,5,BID",
	}
	st, err := c.Read(context.Background(), strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, 5, st.Records)
	assert.Equal(t, 1, st.Skipped)

	require.Len(t, rec.Added, 1)
	book := rec.Added[0]
	assert.Len(t, book.Bids, 2)
	assert.Len(t, book.Offers, 2)
	assert.Equal(t, us2y, book.Product.ID)

	bo, err := md.GetBestBidOffer(us2y)
	require.NoError(t, err)
	assert.InDelta(t, 99+31.0/32, bo.Bid.Price, 1e-12)
	assert.InDelta(t, 100+1.0/32, bo.Offer.Price, 1e-12)
}

func TestInquiryConnector_RoundTrip(t *testing.T) {
	svc := service.NewInquiryService(0, quiet())
	c := NewInquiryConnector(svc, refdata.MustStatic(), quiet())
	svc.SetConnector(c)
	rec := &soa.Recorder[domain.Inquiry]{}
	svc.AddListener(rec)

	input := "INQ1," + us2y + ",BUY,1000000,RECEIVED\n" +
		"INQ2," + us2y + ",SELL,2000000,DONE\n" +
		"INQ3," + us2y + ",SELL,2000000,OPEN\n"
	st, err := c.Read(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 1, st.Skipped)

	require.Len(t, rec.Added, 1)
	assert.Equal(t, "INQ1", rec.Added[0].InquiryID)
	assert.Equal(t, domain.InquiryDone, rec.Added[0].State)
	assert.Equal(t, 100.0, rec.Added[0].Price)
}

func TestInquiryConnector_PublishIgnoresNonReceived(t *testing.T) {
	svc := service.NewInquiryService(0, quiet())
	c := NewInquiryConnector(svc, refdata.MustStatic(), quiet())
	require.NoError(t, c.Publish(context.Background(), domain.Inquiry{InquiryID: "X", State: domain.InquiryDone}))
	assert.Equal(t, 0, svc.Len())
}

func TestScan_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scan(ctx, "x", strings.NewReader("a\nb"), quiet(), func(context.Context, []string) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSplitRecord(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitRecord(" a, b ,c,"))
	assert.Equal(t, []string{"a", "", "c"}, splitRecord("a,,c"))
	assert.Equal(t, []string{""}, splitRecord(""))
}

func TestFileConnector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gui.txt")
	at := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	c := NewFileConnector[domain.Price](path, func() time.Time { return at })

	p := domain.Price{Product: domain.Bond{ID: us2y}, Mid: 100, BidOfferSpread: 1.0 / 128}
	require.NoError(t, c.Publish(context.Background(), p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02 03:04:05.006,"+us2y+",100-00,0-002,\n", string(data))
	assert.ErrorIs(t, c.Subscribe(context.Background(), nil), soa.ErrSubscribeUnsupported)
}

type chanBus struct {
	mu    sync.Mutex
	chans map[string]chan []byte
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.chansSnapshot()[channel] <- payload
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 4)
	b.mu.Lock()
	b.chans[channel] = ch
	b.mu.Unlock()
	return ch, nil
}

func (b *chanBus) chansSnapshot() map[string]chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]chan []byte, len(b.chans))
	for k, v := range b.chans {
		out[k] = v
	}
	return out
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestBusFeeder(t *testing.T) {
	pricing := service.NewPricingService(quiet())
	bus := &chanBus{chans: map[string]chan []byte{}}
	f := NewBusFeeder(bus, quiet(), NewPriceConnector(pricing, refdata.MustStatic(), quiet()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return len(bus.chansSnapshot()) == 1 }, time.Second, 5*time.Millisecond)
	bus.chansSnapshot()[InputChannel(FeedPrices)] <- []byte(us2y + ",99-00,99-01\n")

	require.Eventually(t, func() bool { return pricing.Len() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
