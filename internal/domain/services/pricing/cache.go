// Package pricing serves token-to-fiat price quotes with TTL caching and
// graceful degradation. Price unavailability never surfaces as an error;
// callers get stale or fallback data with a source marker instead.
package pricing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

// Source fetches live quotes from the external price provider
type Source interface {
	FetchPrices(ctx context.Context, symbols []string) (map[string]entities.PriceQuote, error)
}

// SnapshotStore persists the last good quote set so a restart degrades to
// stale data rather than static fallbacks. Optional.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, key string, quotes map[string]entities.PriceQuote) error
	LoadSnapshot(ctx context.Context, key string) (map[string]entities.PriceQuote, error)
}

// fallbackPrices is the documented static fallback table, used only when
// no live or stale data is available
var fallbackPrices = map[string]entities.PriceQuote{
	"ETH":   {Symbol: "ETH", PriceUSD: decimal.NewFromInt(2500)},
	"MATIC": {Symbol: "MATIC", PriceUSD: decimal.NewFromFloat(0.5)},
	"BNB":   {Symbol: "BNB", PriceUSD: decimal.NewFromInt(300)},
	"USDC":  {Symbol: "USDC", PriceUSD: decimal.NewFromInt(1)},
	"USDT":  {Symbol: "USDT", PriceUSD: decimal.NewFromInt(1)},
}

type cachedSet struct {
	quotes    map[string]entities.PriceQuote
	fetchedAt time.Time
}

// Cache is the price feed cache
type Cache struct {
	source       Source
	snapshots    SnapshotStore
	logger       *zap.Logger
	ttl          time.Duration
	staleCeiling time.Duration

	mu      sync.Mutex
	entries map[string]cachedSet

	now func() time.Time
}

// NewCache creates a price feed cache. snapshots may be nil.
func NewCache(source Source, snapshots SnapshotStore, ttl, staleCeiling time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		source:       source,
		snapshots:    snapshots,
		logger:       logger,
		ttl:          ttl,
		staleCeiling: staleCeiling,
		entries:      make(map[string]cachedSet),
		now:          time.Now,
	}
}

// GetPrices returns quotes for the requested symbols together with a
// source marker. It never returns an error: on fetch failure it degrades
// to the last cached values (if within the stale ceiling) and finally to
// the static fallback table.
func (c *Cache) GetPrices(ctx context.Context, symbols []string) (map[string]entities.PriceQuote, entities.QuoteSource) {
	key := cacheKey(symbols)
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()

	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		return copyQuotes(entry.quotes), entities.QuoteSourceLive
	}

	quotes, err := c.source.FetchPrices(ctx, symbols)
	if err == nil {
		c.mu.Lock()
		c.entries[key] = cachedSet{quotes: quotes, fetchedAt: now}
		c.mu.Unlock()

		if c.snapshots != nil {
			if serr := c.snapshots.SaveSnapshot(ctx, key, quotes); serr != nil {
				c.logger.Warn("Failed to persist price snapshot", zap.Error(serr))
			}
		}
		return copyQuotes(quotes), entities.QuoteSourceLive
	}

	c.logger.Warn("Price fetch failed, degrading",
		zap.Strings("symbols", symbols),
		zap.Error(err))

	if ok && now.Sub(entry.fetchedAt) < c.staleCeiling {
		return copyQuotes(entry.quotes), entities.QuoteSourceStale
	}

	if c.snapshots != nil {
		if snapshot, serr := c.snapshots.LoadSnapshot(ctx, key); serr == nil && withinCeiling(snapshot, now, c.staleCeiling) {
			return copyQuotes(snapshot), entities.QuoteSourceStale
		}
	}

	return fallbackFor(symbols), entities.QuoteSourceFallback
}

// cacheKey is the sorted symbol set, so equal sets share one entry
// regardless of request order
func cacheKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	for i, s := range symbols {
		sorted[i] = strings.ToUpper(s)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func fallbackFor(symbols []string) map[string]entities.PriceQuote {
	result := make(map[string]entities.PriceQuote, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(s)
		if quote, ok := fallbackPrices[sym]; ok {
			result[sym] = quote
		}
	}
	return result
}

func withinCeiling(quotes map[string]entities.PriceQuote, now time.Time, ceiling time.Duration) bool {
	for _, q := range quotes {
		if now.Sub(q.FetchedAt) >= ceiling {
			return false
		}
	}
	return len(quotes) > 0
}

func copyQuotes(quotes map[string]entities.PriceQuote) map[string]entities.PriceQuote {
	result := make(map[string]entities.PriceQuote, len(quotes))
	for k, v := range quotes {
		result[k] = v
	}
	return result
}
