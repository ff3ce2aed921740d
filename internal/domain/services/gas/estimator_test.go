package gas

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
	domainerrors "github.com/Fortis-Ledger/payoova2-sub000/internal/domain/errors"
)

type mockQuoteSource struct {
	quote entities.GasQuote
	err   error
	calls int
}

func (m *mockQuoteSource) FetchGasQuote(ctx context.Context, network entities.Network) (entities.GasQuote, error) {
	m.calls++
	if m.err != nil {
		return entities.GasQuote{}, m.err
	}
	return m.quote, nil
}

func ethGasQuote() entities.GasQuote {
	return entities.GasQuote{
		Network:  entities.NetworkEthereum,
		Slow:     decimal.NewFromInt(20),
		Standard: decimal.NewFromInt(30),
		Fast:     decimal.NewFromInt(50),
	}
}

func TestEstimator_FeeMath(t *testing.T) {
	source := &mockQuoteSource{quote: ethGasQuote()}
	estimator := NewEstimator(source, 30*time.Second, zap.NewNop())

	estimate, err := estimator.Estimate(context.Background(), entities.NetworkEthereum,
		decimal.RequireFromString("0.4"), entities.GasTierStandard)
	require.NoError(t, err)

	// 30 gwei * 21000 units / 1e9 = 0.00063 ETH
	assert.True(t, estimate.GasFee.Equal(decimal.RequireFromString("0.00063")), estimate.GasFee.String())
	assert.True(t, estimate.TotalCost.Equal(decimal.RequireFromString("0.40063")), estimate.TotalCost.String())
	assert.Equal(t, "ETH", estimate.Currency)
	assert.Equal(t, entities.QuoteSourceLive, estimate.Source)
}

func TestEstimator_UnknownTierDefaultsToStandard(t *testing.T) {
	source := &mockQuoteSource{quote: ethGasQuote()}
	estimator := NewEstimator(source, 30*time.Second, zap.NewNop())

	estimate, err := estimator.Estimate(context.Background(), entities.NetworkEthereum,
		decimal.Zero, entities.GasTier("turbo"))
	require.NoError(t, err)
	assert.Equal(t, entities.GasTierStandard, estimate.Tier)

	estimate, err = estimator.Estimate(context.Background(), entities.NetworkEthereum,
		decimal.Zero, "")
	require.NoError(t, err)
	assert.Equal(t, entities.GasTierStandard, estimate.Tier)
}

func TestEstimator_InvalidInputs(t *testing.T) {
	estimator := NewEstimator(&mockQuoteSource{}, 30*time.Second, zap.NewNop())

	_, err := estimator.Estimate(context.Background(), "solana", decimal.Zero, entities.GasTierStandard)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)

	_, err = estimator.Estimate(context.Background(), entities.NetworkEthereum,
		decimal.RequireFromString("-1"), entities.GasTierStandard)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
}

func TestEstimator_CachesWithinTTL(t *testing.T) {
	base := time.Now()
	source := &mockQuoteSource{quote: ethGasQuote()}
	estimator := NewEstimator(source, 30*time.Second, zap.NewNop())
	estimator.now = func() time.Time { return base }

	_, err := estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierFast)
	require.NoError(t, err)
	_, err = estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierSlow)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	estimator.now = func() time.Time { return base.Add(time.Minute) }
	_, err = estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierSlow)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestEstimator_FetchFailureUsesFallbackTable(t *testing.T) {
	source := &mockQuoteSource{err: errors.New("rpc down")}
	estimator := NewEstimator(source, 30*time.Second, zap.NewNop())

	estimate, err := estimator.Estimate(context.Background(), entities.NetworkPolygon,
		decimal.RequireFromString("10"), entities.GasTierFast)
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteSourceFallback, estimate.Source)
	// 80 gwei * 21000 / 1e9 = 0.00168 MATIC
	assert.True(t, estimate.GasFee.Equal(decimal.RequireFromString("0.00168")), estimate.GasFee.String())
	assert.Equal(t, "MATIC", estimate.Currency)
}

func TestEstimator_FetchFailureAfterExpiryServesStale(t *testing.T) {
	base := time.Now()
	source := &mockQuoteSource{quote: ethGasQuote()}
	estimator := NewEstimator(source, 30*time.Second, zap.NewNop())
	estimator.now = func() time.Time { return base }

	_, err := estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierStandard)
	require.NoError(t, err)

	source.err = errors.New("rpc down")
	estimator.now = func() time.Time { return base.Add(time.Minute) }
	estimate, err := estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierStandard)
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteSourceStale, estimate.Source)
}

type fnQuoteSource struct {
	fn func(network entities.Network) (entities.GasQuote, error)
}

func (f *fnQuoteSource) FetchGasQuote(ctx context.Context, network entities.Network) (entities.GasQuote, error) {
	return f.fn(network)
}

func TestEstimator_SupersededRefreshDiscarded(t *testing.T) {
	var estimator *Estimator

	// while the first refresh is in flight, a newer one starts and lands
	// its quote; the first response must not overwrite it
	fresher := ethGasQuote()
	fresher.Standard = decimal.NewFromInt(99)
	stale := ethGasQuote()
	stale.Standard = decimal.NewFromInt(1)

	source := &fnQuoteSource{fn: func(network entities.Network) (entities.GasQuote, error) {
		estimator.mu.Lock()
		estimator.seq[network]++
		estimator.cache[network] = cachedQuote{quote: fresher, fetchedAt: time.Now()}
		estimator.mu.Unlock()
		return stale, nil
	}}
	estimator = NewEstimator(source, 30*time.Second, zap.NewNop())

	estimate, err := estimator.Estimate(context.Background(), entities.NetworkEthereum, decimal.Zero, entities.GasTierStandard)
	require.NoError(t, err)

	expected := decimal.NewFromInt(99).Mul(decimal.NewFromInt(21000)).Div(gweiPerNative)
	assert.True(t, estimate.GasFee.Equal(expected), estimate.GasFee.String())

	cached, ok := estimator.cache[entities.NetworkEthereum]
	require.True(t, ok)
	assert.True(t, cached.quote.Standard.Equal(decimal.NewFromInt(99)), "stale response must not overwrite the fresher quote")
}
