package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

func TestPriceClient_FetchPrices(t *testing.T) {
	t.Run("maps symbols to provider IDs and back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/simple/price", r.URL.Path)
			assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
			assert.Contains(t, r.URL.Query().Get("ids"), "ethereum")
			assert.Contains(t, r.URL.Query().Get("ids"), "matic-network")

			json.NewEncoder(w).Encode(map[string]map[string]float64{
				"ethereum":      {"usd": 2600.5, "usd_24h_change": -1.2},
				"matic-network": {"usd": 0.55, "usd_24h_change": 3.4},
			})
		}))
		defer server.Close()

		client := NewPriceClient(server.URL, zap.NewNop())
		quotes, err := client.FetchPrices(context.Background(), []string{"eth", "MATIC"})
		require.NoError(t, err)

		require.Contains(t, quotes, "ETH")
		require.Contains(t, quotes, "MATIC")
		assert.True(t, quotes["ETH"].PriceUSD.Equal(decimal.NewFromFloat(2600.5)))
		assert.True(t, quotes["MATIC"].Change24hPct.Equal(decimal.NewFromFloat(3.4)))
		assert.False(t, quotes["ETH"].FetchedAt.IsZero())
	})

	t.Run("rejects requests with no known symbols", func(t *testing.T) {
		client := NewPriceClient("http://unused", zap.NewNop())
		_, err := client.FetchPrices(context.Background(), []string{"DOGE"})
		assert.Error(t, err)
	})

	t.Run("propagates provider errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewPriceClient(server.URL, zap.NewNop())
		_, err := client.FetchPrices(context.Background(), []string{"ETH"})
		assert.Error(t, err)
	})
}

func TestGasClient_FetchGasQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gas", r.URL.Path)
		assert.Equal(t, "polygon", r.URL.Query().Get("network"))

		json.NewEncoder(w).Encode(map[string]float64{
			"slow": 30, "standard": 40, "fast": 80,
		})
	}))
	defer server.Close()

	client := NewGasClient(server.URL, zap.NewNop())
	quote, err := client.FetchGasQuote(context.Background(), entities.NetworkPolygon)
	require.NoError(t, err)

	assert.Equal(t, entities.NetworkPolygon, quote.Network)
	assert.True(t, quote.Slow.Equal(decimal.NewFromInt(30)))
	assert.True(t, quote.Standard.Equal(decimal.NewFromInt(40)))
	assert.True(t, quote.Fast.Equal(decimal.NewFromInt(80)))
}

func TestGasClient_CircuitBreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGasClient(server.URL, zap.NewNop())
	for i := 0; i < 6; i++ {
		_, err := client.FetchGasQuote(context.Background(), entities.NetworkEthereum)
		require.Error(t, err)
	}

	// breaker is open now; the request fails fast without hitting the server
	_, err := client.FetchGasQuote(context.Background(), entities.NetworkEthereum)
	assert.Error(t, err)
}
