// Package gas computes fee estimates for prospective transfers. Estimates
// come from a live per-network quote source with a TTL cache in front; on
// any fetch failure the estimator degrades to a static fallback table and
// never raises the failure to the caller.
package gas

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	domainerrors "github.com/Fortis-Ledger/payoova2-sub000/internal/domain/errors"
)

// QuoteSource fetches a live gas quote for a network
type QuoteSource interface {
	FetchGasQuote(ctx context.Context, network entities.Network) (entities.GasQuote, error)
}

// fallbackQuotes is the documented static per-network fallback table,
// tier prices in gwei
var fallbackQuotes = map[entities.Network]entities.GasQuote{
	entities.NetworkEthereum: {
		Network: entities.NetworkEthereum,
		Slow:    decimal.NewFromInt(20), Standard: decimal.NewFromInt(30), Fast: decimal.NewFromInt(50),
	},
	entities.NetworkPolygon: {
		Network: entities.NetworkPolygon,
		Slow:    decimal.NewFromInt(30), Standard: decimal.NewFromInt(40), Fast: decimal.NewFromInt(80),
	},
	entities.NetworkBSC: {
		Network: entities.NetworkBSC,
		Slow:    decimal.NewFromInt(3), Standard: decimal.NewFromInt(5), Fast: decimal.NewFromInt(10),
	},
	entities.NetworkBase: {
		Network: entities.NetworkBase,
		Slow:    decimal.NewFromFloat(0.05), Standard: decimal.NewFromFloat(0.1), Fast: decimal.NewFromFloat(0.2),
	},
}

// gweiPerNative converts gwei to the network's native currency unit
var gweiPerNative = decimal.NewFromInt(1_000_000_000)

// FeeEstimate is the result of an estimate call
type FeeEstimate struct {
	GasFee    decimal.Decimal      `json:"gas_fee"`
	TotalCost decimal.Decimal      `json:"total_cost"`
	Currency  string               `json:"currency"`
	Tier      entities.GasTier     `json:"tier"`
	Source    entities.QuoteSource `json:"source"`
}

type cachedQuote struct {
	quote     entities.GasQuote
	fetchedAt time.Time
}

// Estimator produces fee estimates per network
type Estimator struct {
	source QuoteSource
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.Mutex
	cache map[entities.Network]cachedQuote
	// per-network fetch sequence; a refresh that finishes after a newer
	// refresh started is discarded so a stale response cannot overwrite
	// a fresher one
	seq map[entities.Network]uint64

	now func() time.Time
}

// NewEstimator creates a gas estimator
func NewEstimator(source QuoteSource, ttl time.Duration, logger *zap.Logger) *Estimator {
	return &Estimator{
		source: source,
		logger: logger,
		ttl:    ttl,
		cache:  make(map[entities.Network]cachedQuote),
		seq:    make(map[entities.Network]uint64),
		now:    time.Now,
	}
}

// Estimate computes the fee for a transfer of amount on network at the
// given urgency tier (standard when the tier is empty or unknown). It is
// cheap to call repeatedly against the cache, so callers may drive it from
// debounced user input. Source failures degrade to the fallback table.
func (e *Estimator) Estimate(ctx context.Context, network entities.Network, amount decimal.Decimal, tier entities.GasTier) (FeeEstimate, error) {
	if !network.IsValid() {
		return FeeEstimate{}, domainerrors.NewDomainError(domainerrors.ErrInvalidInput, "INVALID_NETWORK", "unsupported network: "+string(network))
	}
	if amount.IsNegative() {
		return FeeEstimate{}, domainerrors.InvalidAmountError(amount.String())
	}
	if !tier.IsValid() {
		tier = entities.GasTierStandard
	}

	quote, source := e.quoteFor(ctx, network)

	gasUnits := decimal.NewFromInt(network.TransferGasUnits())
	gasFee := quote.Tier(tier).Mul(gasUnits).Div(gweiPerNative)

	return FeeEstimate{
		GasFee:    gasFee,
		TotalCost: amount.Add(gasFee),
		Currency:  network.NativeCurrency(),
		Tier:      tier,
		Source:    source,
	}, nil
}

func (e *Estimator) quoteFor(ctx context.Context, network entities.Network) (entities.GasQuote, entities.QuoteSource) {
	e.mu.Lock()
	cached, ok := e.cache[network]
	if ok && e.now().Sub(cached.fetchedAt) < e.ttl {
		e.mu.Unlock()
		return cached.quote, entities.QuoteSourceLive
	}
	e.seq[network]++
	mySeq := e.seq[network]
	e.mu.Unlock()

	quote, err := e.source.FetchGasQuote(ctx, network)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq[network] != mySeq {
		// a newer refresh superseded this one; use whatever it cached,
		// or fall back if it has not landed yet
		if fresh, ok := e.cache[network]; ok {
			return fresh.quote, entities.QuoteSourceLive
		}
		return fallbackQuotes[network], entities.QuoteSourceFallback
	}

	if err != nil {
		e.logger.Warn("Gas quote fetch failed, using fallback",
			zap.String("network", string(network)),
			zap.Error(err))
		if ok {
			return cached.quote, entities.QuoteSourceStale
		}
		return fallbackQuotes[network], entities.QuoteSourceFallback
	}

	e.cache[network] = cachedQuote{quote: quote, fetchedAt: e.now()}
	return quote, entities.QuoteSourceLive
}
