package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSource marks where a quote or estimate came from
type QuoteSource string

const (
	QuoteSourceLive     QuoteSource = "live"
	QuoteSourceStale    QuoteSource = "stale"
	QuoteSourceFallback QuoteSource = "fallback"
)

// GasTier selects the urgency tier of a gas quote
type GasTier string

const (
	GasTierSlow     GasTier = "slow"
	GasTierStandard GasTier = "standard"
	GasTierFast     GasTier = "fast"
)

// IsValid checks if the tier is known
func (t GasTier) IsValid() bool {
	return t == GasTierSlow || t == GasTierStandard || t == GasTierFast
}

// PriceQuote is a token-to-fiat price snapshot. Quotes are ephemeral and
// replaced wholesale on refresh, never partially mutated.
type PriceQuote struct {
	Symbol       string          `json:"symbol"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Change24hPct decimal.Decimal `json:"change_24h_pct"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// GasQuote is a per-network fee-rate snapshot, tier prices in gwei
type GasQuote struct {
	Network   Network         `json:"network"`
	Slow      decimal.Decimal `json:"slow"`
	Standard  decimal.Decimal `json:"standard"`
	Fast      decimal.Decimal `json:"fast"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Tier returns the price for the requested tier
func (g *GasQuote) Tier(tier GasTier) decimal.Decimal {
	switch tier {
	case GasTierSlow:
		return g.Slow
	case GasTierFast:
		return g.Fast
	default:
		return g.Standard
	}
}
