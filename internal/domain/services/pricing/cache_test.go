package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

type mockSource struct {
	quotes map[string]entities.PriceQuote
	err    error
	calls  int
}

func (m *mockSource) FetchPrices(ctx context.Context, symbols []string) (map[string]entities.PriceQuote, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quotes, nil
}

type mockSnapshots struct {
	saved  map[string]map[string]entities.PriceQuote
	loaded map[string]entities.PriceQuote
	errOut error
}

func (m *mockSnapshots) SaveSnapshot(ctx context.Context, key string, quotes map[string]entities.PriceQuote) error {
	if m.saved == nil {
		m.saved = make(map[string]map[string]entities.PriceQuote)
	}
	m.saved[key] = quotes
	return nil
}

func (m *mockSnapshots) LoadSnapshot(ctx context.Context, key string) (map[string]entities.PriceQuote, error) {
	if m.errOut != nil {
		return nil, m.errOut
	}
	return m.loaded, nil
}

func ethQuote(price string, fetchedAt time.Time) map[string]entities.PriceQuote {
	return map[string]entities.PriceQuote{
		"ETH": {Symbol: "ETH", PriceUSD: decimal.RequireFromString(price), FetchedAt: fetchedAt},
	}
}

func TestCache_LiveFetchAndTTLHit(t *testing.T) {
	base := time.Now()
	source := &mockSource{quotes: ethQuote("2600", base)}
	cache := NewCache(source, nil, time.Minute, 10*time.Minute, zap.NewNop())
	cache.now = func() time.Time { return base }

	quotes, src := cache.GetPrices(context.Background(), []string{"ETH"})
	require.Equal(t, entities.QuoteSourceLive, src)
	assert.True(t, quotes["ETH"].PriceUSD.Equal(decimal.RequireFromString("2600")))
	assert.Equal(t, 1, source.calls)

	// within TTL the source is not consulted again
	cache.now = func() time.Time { return base.Add(30 * time.Second) }
	_, src = cache.GetPrices(context.Background(), []string{"ETH"})
	assert.Equal(t, entities.QuoteSourceLive, src)
	assert.Equal(t, 1, source.calls)

	// past TTL the source is refreshed
	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, src = cache.GetPrices(context.Background(), []string{"ETH"})
	assert.Equal(t, entities.QuoteSourceLive, src)
	assert.Equal(t, 2, source.calls)
}

func TestCache_DegradesToStaleThenFallback(t *testing.T) {
	base := time.Now()
	source := &mockSource{quotes: ethQuote("2600", base)}
	cache := NewCache(source, nil, time.Minute, 10*time.Minute, zap.NewNop())
	cache.now = func() time.Time { return base }

	cache.GetPrices(context.Background(), []string{"ETH"})

	// fetch failure within the stale ceiling serves the last good set
	source.err = errors.New("provider down")
	cache.now = func() time.Time { return base.Add(5 * time.Minute) }
	quotes, src := cache.GetPrices(context.Background(), []string{"ETH"})
	assert.Equal(t, entities.QuoteSourceStale, src)
	assert.True(t, quotes["ETH"].PriceUSD.Equal(decimal.RequireFromString("2600")))

	// past the ceiling only the static table remains
	cache.now = func() time.Time { return base.Add(20 * time.Minute) }
	quotes, src = cache.GetPrices(context.Background(), []string{"ETH"})
	assert.Equal(t, entities.QuoteSourceFallback, src)
	assert.True(t, quotes["ETH"].PriceUSD.Equal(decimal.NewFromInt(2500)))
}

func TestCache_FallbackCoversKnownSymbolsOnly(t *testing.T) {
	source := &mockSource{err: errors.New("provider down")}
	cache := NewCache(source, nil, time.Minute, 10*time.Minute, zap.NewNop())

	quotes, src := cache.GetPrices(context.Background(), []string{"eth", "DOGE"})
	assert.Equal(t, entities.QuoteSourceFallback, src)
	assert.Contains(t, quotes, "ETH")
	assert.NotContains(t, quotes, "DOGE")
}

func TestCache_SnapshotSavedAndServedAcrossRestart(t *testing.T) {
	base := time.Now()
	snapshots := &mockSnapshots{}
	source := &mockSource{quotes: ethQuote("2600", base)}
	cache := NewCache(source, snapshots, time.Minute, 10*time.Minute, zap.NewNop())
	cache.now = func() time.Time { return base }

	cache.GetPrices(context.Background(), []string{"ETH"})
	require.Contains(t, snapshots.saved, "ETH")

	// a fresh cache with no in-memory entry falls back to the snapshot
	snapshots.loaded = ethQuote("2600", base)
	failing := &mockSource{err: errors.New("provider down")}
	restarted := NewCache(failing, snapshots, time.Minute, 10*time.Minute, zap.NewNop())
	restarted.now = func() time.Time { return base.Add(2 * time.Minute) }

	quotes, src := restarted.GetPrices(context.Background(), []string{"ETH"})
	assert.Equal(t, entities.QuoteSourceStale, src)
	assert.True(t, quotes["ETH"].PriceUSD.Equal(decimal.RequireFromString("2600")))
}

func TestCacheKey_OrderAndCaseInsensitive(t *testing.T) {
	assert.Equal(t, cacheKey([]string{"eth", "MATIC"}), cacheKey([]string{"matic", "ETH"}))
	assert.Equal(t, "ETH,MATIC", cacheKey([]string{"matic", "eth"}))
}
