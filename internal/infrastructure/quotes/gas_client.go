package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

const gasClientTimeout = 10 * time.Second

// GasClient fetches per-network gas tiers from an HTTP gas oracle that
// responds with gwei tier prices
type GasClient struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewGasClient creates a gas oracle client
func NewGasClient(baseURL string, logger *zap.Logger) *GasClient {
	cbSettings := gobreaker.Settings{
		Name:        "GasSource",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &GasClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: gasClientTimeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		logger:         logger,
	}
}

// FetchGasQuote fetches the current gas tiers for a network
func (c *GasClient) FetchGasQuote(ctx context.Context, network entities.Network) (entities.GasQuote, error) {
	endpoint := fmt.Sprintf("%s/gas?network=%s", c.baseURL, network)

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doFetch(ctx, endpoint, network)
	})
	if err != nil {
		return entities.GasQuote{}, err
	}
	return result.(entities.GasQuote), nil
}

func (c *GasClient) doFetch(ctx context.Context, endpoint string, network entities.Network) (entities.GasQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entities.GasQuote{}, fmt.Errorf("build gas request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entities.GasQuote{}, fmt.Errorf("gas request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return entities.GasQuote{}, fmt.Errorf("gas source returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Slow     float64 `json:"slow"`
		Standard float64 `json:"standard"`
		Fast     float64 `json:"fast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return entities.GasQuote{}, fmt.Errorf("decode gas response: %w", err)
	}

	return entities.GasQuote{
		Network:   network,
		Slow:      decimal.NewFromFloat(payload.Slow),
		Standard:  decimal.NewFromFloat(payload.Standard),
		Fast:      decimal.NewFromFloat(payload.Fast),
		FetchedAt: time.Now(),
	}, nil
}
