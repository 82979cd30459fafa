package simulate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/bondtrader/internal/pricetick"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	n := 0
	g := New(Config{
		Dir:                 dir,
		Products:            []string{"91282CLY5", "91282CMB4"},
		PricesPerProduct:    20,
		BooksPerProduct:     3,
		TradesPerProduct:    4,
		InquiriesPerProduct: 6,
		BookDepth:           5,
		NewID:               func() string { n++; return fmt.Sprintf("ID%d", n) },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	paths, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	prices := readLines(t, filepath.Join(dir, PricesFile))
	assert.Len(t, prices, 40)
	assert.Equal(t, "91282CLY5,99-00,99-00+", prices[0])

	md := readLines(t, filepath.Join(dir, MarketDataFile))
	assert.Len(t, md, 2*3*2*5)
	assert.Equal(t, "91282CLY5,98-316,10000000,BID", md[0])
	assert.Equal(t, "91282CLY5,99-002,10000000,OFFER", md[1])

	trades := readLines(t, filepath.Join(dir, TradesFile))
	require.Len(t, trades, 8)
	assert.Equal(t, "91282CLY5,ID1,99-00,TRSY1,1000000,BUY", trades[0])
	assert.Equal(t, "91282CLY5,ID2,100-00,TRSY2,2000000,SELL", trades[1])

	inq := readLines(t, filepath.Join(dir, InquiriesFile))
	require.Len(t, inq, 12)
	assert.True(t, strings.HasSuffix(inq[0], ",91282CLY5,SELL,1000000,RECEIVED"))
	assert.True(t, strings.HasSuffix(inq[1], ",91282CLY5,BUY,2000000,RECEIVED"))
}

func TestPricesStayInBounds(t *testing.T) {
	dir := t.TempDir()
	g := New(Config{Dir: dir, Products: []string{"X"}, PricesPerProduct: 1200}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := g.Generate(context.Background())
	require.NoError(t, err)

	for _, line := range readLines(t, filepath.Join(dir, PricesFile)) {
		f := strings.Split(line, ",")
		bid := pricetick.MustParse(f[1])
		offer := pricetick.MustParse(f[2])
		assert.GreaterOrEqual(t, bid, 99.0)
		assert.LessOrEqual(t, offer, 101.0)
		assert.Less(t, bid, offer)
	}
}

func TestNextMidBounces(t *testing.T) {
	asc := true
	mid := 101 - tick
	mid = nextMid(mid, &asc)
	assert.Equal(t, 101.0, mid)
	assert.True(t, asc)
	mid = nextMid(mid, &asc)
	assert.Equal(t, 101.0, mid)
	assert.False(t, asc)
	mid = nextMid(mid, &asc)
	assert.Equal(t, 101-tick, mid)
}
