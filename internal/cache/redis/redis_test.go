package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondtrader/internal/domain"
)

func TestKey(t *testing.T) {
	c := NewFromClient(nil, "")
	assert.Equal(t, "bondtrader:book:91282CLY5:bbo", c.Key("book", "91282CLY5", "bbo"))
	assert.Equal(t, "bondtrader:feeds", c.Key(FeedsLock))
	assert.Equal(t, "desk2:quote:X", NewFromClient(nil, "desk2").Key("quote", "X"))
}

func TestHasPattern(t *testing.T) {
	assert.True(t, hasPattern("desk:*"))
	assert.False(t, hasPattern(domain.EventChannel(domain.CategoryGUI)))
}

func TestBBOFieldsRoundTrip(t *testing.T) {
	bo := domain.BidOffer{
		Bid:   domain.Order{Price: 99 + 31.0/32, Quantity: 10_000_000, Side: domain.PricingSideBid},
		Offer: domain.Order{Price: 100 + 1.0/256, Quantity: 20_000_000, Side: domain.PricingSideOffer},
	}
	fields := bboFields(bo, time.Unix(0, 42))
	vals := make(map[string]string, len(fields))
	for k, v := range fields {
		vals[k] = v.(string)
	}
	assert.Equal(t, "42", vals["ts"])

	got, err := parseBBO(vals)
	require.NoError(t, err)
	assert.Equal(t, bo, got)

	_, err = parseBBO(map[string]string{"bid": "x", "offer": "1"})
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	zs := []redis.Z{
		{Score: 100, Member: "100"},
		{Score: 99.5, Member: "99.5"},
		{Score: 99, Member: "99"},
	}
	qty := map[string]string{"100": "10", "99.5": "30"}
	got := levels(zs, qty, domain.PricingSideBid)
	assert.Equal(t, []domain.Order{
		{Price: 100, Quantity: 10, Side: domain.PricingSideBid},
		{Price: 99.5, Quantity: 30, Side: domain.PricingSideBid},
	}, got)
}

func TestQuoteFieldsRoundTrip(t *testing.T) {
	stream := domain.PriceStream{
		Product: domain.Bond{ID: "91282CLY5", IDType: domain.BondIDCUSIP, Ticker: "US2Y"},
		Bid:     domain.PriceStreamOrder{Price: 99.5, VisibleQuantity: 1_000_000, HiddenQuantity: 2_000_000, Side: domain.PricingSideBid},
		Offer:   domain.PriceStreamOrder{Price: 99.51, VisibleQuantity: 1_000_000, HiddenQuantity: 2_000_000, Side: domain.PricingSideOffer},
	}
	ts := time.Unix(1_700_000_000, 5)
	fields, err := quoteFields(stream, ts)
	require.NoError(t, err)
	assert.Equal(t, "99.5", fields["bid"])

	vals := make(map[string]string, len(fields))
	for k, v := range fields {
		vals[k] = v.(string)
	}
	got, gotTS, err := parseQuote(vals)
	require.NoError(t, err)
	assert.Equal(t, stream, got)
	assert.True(t, ts.Equal(gotTS))

	_, _, err = parseQuote(map[string]string{"ts": "1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStreamPayload(t *testing.T) {
	b, ok := streamPayload(map[string]interface{}{"payload": "abc"})
	assert.True(t, ok)
	assert.Equal(t, []byte("abc"), b)
	_, ok = streamPayload(map[string]interface{}{"other": "abc"})
	assert.False(t, ok)
}

type recordingBus struct {
	published map[string][][]byte
	streamed  map[string][][]byte
	err       error
}

func newRecordingBus() *recordingBus {
	return &recordingBus{published: map[string][][]byte{}, streamed: map[string][][]byte{}}
}

func (b *recordingBus) Publish(_ context.Context, ch string, p []byte) error {
	if b.err != nil {
		return b.err
	}
	b.published[ch] = append(b.published[ch], p)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *recordingBus) StreamAppend(_ context.Context, s string, p []byte) error {
	b.streamed[s] = append(b.streamed[s], p)
	return nil
}

func (b *recordingBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func TestEventPublisher_Emit(t *testing.T) {
	bus := newRecordingBus()
	p := NewEventPublisher(bus)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	trade := domain.Trade{
		Product:  domain.Bond{ID: "91282CLY5"},
		TradeID:  "T1",
		Price:    99,
		Book:     "TRSY1",
		Quantity: 1_000_000,
		Side:     domain.SideBuy,
	}
	require.NoError(t, p.Emit(context.Background(), domain.NewDeskEvent(domain.CategoryTrade, trade, at)))

	require.Len(t, bus.published["desk:trade"], 1)
	require.Len(t, bus.streamed["desk:stream:trade"], 1)

	ev, err := DecodeEvent(bus.published["desk:trade"][0])
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryTrade, ev.Category)
	assert.Equal(t, "T1", ev.Key)
	assert.Equal(t, trade.Fields(), ev.Fields)
	assert.True(t, at.Equal(ev.Timestamp))

	data, ok := ev.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "TRSY1", data["book"])
}

func TestEventPublisher_PublishErrorSkipsStream(t *testing.T) {
	bus := newRecordingBus()
	bus.err = errors.New("down")
	err := NewEventPublisher(bus).Emit(context.Background(), domain.DeskEvent{Category: domain.CategoryGUI})
	assert.Error(t, err)
	assert.Empty(t, bus.streamed)
}
