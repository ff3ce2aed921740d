// Package quotes contains clients for the external price and gas quote
// sources. All clients sit behind circuit breakers; callers above them
// absorb failures into cache/fallback behavior.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

const priceClientTimeout = 10 * time.Second

// symbolToID maps currency symbols to the price provider's asset IDs
var symbolToID = map[string]string{
	"ETH":   "ethereum",
	"MATIC": "matic-network",
	"BNB":   "binancecoin",
	"USDC":  "usd-coin",
	"USDT":  "tether",
}

var idToSymbol = func() map[string]string {
	m := make(map[string]string, len(symbolToID))
	for sym, id := range symbolToID {
		m[id] = sym
	}
	return m
}()

// PriceClient fetches spot prices from a CoinGecko-compatible endpoint
type PriceClient struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewPriceClient creates a price quote client
func NewPriceClient(baseURL string, logger *zap.Logger) *PriceClient {
	cbSettings := gobreaker.Settings{
		Name:        "PriceSource",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Price source circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &PriceClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: priceClientTimeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
	}
}

// FetchPrices fetches USD prices and 24h change for the given symbols
func (c *PriceClient) FetchPrices(ctx context.Context, symbols []string) (map[string]entities.PriceQuote, error) {
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if id, ok := symbolToID[strings.ToUpper(sym)]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no known symbols in %v", symbols)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")
	endpoint := fmt.Sprintf("%s/simple/price?%s", c.baseURL, query.Encode())

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]entities.PriceQuote), nil
}

func (c *PriceClient) doFetch(ctx context.Context, endpoint string) (map[string]entities.PriceQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price source returned %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]struct {
		USD          float64 `json:"usd"`
		USD24hChange float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	now := time.Now()
	quotes := make(map[string]entities.PriceQuote, len(payload))
	for id, entry := range payload {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		quotes[sym] = entities.PriceQuote{
			Symbol:       sym,
			PriceUSD:     decimal.NewFromFloat(entry.USD),
			Change24hPct: decimal.NewFromFloat(entry.USD24hChange),
			FetchedAt:    now,
		}
	}
	return quotes, nil
}
