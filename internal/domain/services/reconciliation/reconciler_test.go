package reconciliation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/reconciliation"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
)

type mockBalanceSource struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
	err      error
	calls    int
	fetched  chan struct{}
}

func newMockBalanceSource() *mockBalanceSource {
	return &mockBalanceSource{
		balances: make(map[uuid.UUID]decimal.Decimal),
		fetched:  make(chan struct{}, 16),
	}
}

func (m *mockBalanceSource) FetchBalances(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	select {
	case m.fetched <- struct{}{}:
	default:
	}
	if m.err != nil {
		return nil, m.err
	}
	result := make(map[uuid.UUID]decimal.Decimal, len(m.balances))
	for k, v := range m.balances {
		result[k] = v
	}
	return result, nil
}

func (m *mockBalanceSource) set(walletID uuid.UUID, balance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[walletID] = decimal.RequireFromString(balance)
}

func seedWallet(s *store.Store, userID uuid.UUID, balance string) entities.Wallet {
	wallet := entities.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Network:   entities.NetworkEthereum,
		Address:   "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Balance:   decimal.RequireFromString(balance),
		IsActive:  true,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
	s.ApplyWalletDelta(entities.ChangeKindInsert, wallet)
	return wallet
}

func waitForFetch(t *testing.T, source *mockBalanceSource) {
	t.Helper()
	select {
	case <-source.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a balance fetch")
	}
}

func TestReconciler_OverwritesOptimisticProjection(t *testing.T) {
	userID := uuid.New()
	st := store.New(zap.NewNop())
	wallet := seedWallet(st, userID, "1.0")

	// an optimistic debit leaves the display at 0.59
	txID := uuid.New()
	require.NoError(t, st.ApplyOptimisticDebit(wallet.ID, txID, decimal.RequireFromString("0.41")))
	got, _ := st.GetWallet(entities.NetworkEthereum)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("0.59")))

	source := newMockBalanceSource()
	source.set(wallet.ID, "0.588")

	r := reconciliation.NewReconciler(userID, st, source, time.Hour, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitForFetch(t, source)
	// give the store write a moment after the fetch returns
	assert.Eventually(t, func() bool {
		got, _ := st.GetWallet(entities.NetworkEthereum)
		return got.Balance.Equal(decimal.RequireFromString("0.588"))
	}, 2*time.Second, 10*time.Millisecond)

	got, _ = st.GetWallet(entities.NetworkEthereum)
	assert.Equal(t, entities.BalanceAuthoritative, got.BalanceConfidence)
}

func TestReconciler_FetchFailureKeepsLocalBalances(t *testing.T) {
	userID := uuid.New()
	st := store.New(zap.NewNop())
	wallet := seedWallet(st, userID, "1.0")
	require.NoError(t, st.ApplyOptimisticDebit(wallet.ID, uuid.New(), decimal.RequireFromString("0.3")))

	source := newMockBalanceSource()
	source.err = errors.New("backend down")

	r := reconciliation.NewReconciler(userID, st, source, time.Hour, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitForFetch(t, source)

	got, _ := st.GetWallet(entities.NetworkEthereum)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("0.7")))
	assert.Equal(t, entities.BalanceOptimistic, got.BalanceConfidence)
}

func TestReconciler_SkipsWalletsMissingFromResponse(t *testing.T) {
	userID := uuid.New()
	st := store.New(zap.NewNop())
	wallet := seedWallet(st, userID, "1.0")

	source := newMockBalanceSource() // empty response lists no wallets

	r := reconciliation.NewReconciler(userID, st, source, time.Hour, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitForFetch(t, source)

	got, ok := st.GetWalletByID(wallet.ID)
	require.True(t, ok)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1.0")))
}

func TestReconciler_TriggerNowRunsExtraCycle(t *testing.T) {
	userID := uuid.New()
	st := store.New(zap.NewNop())
	seedWallet(st, userID, "1.0")

	source := newMockBalanceSource()
	r := reconciliation.NewReconciler(userID, st, source, time.Hour, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitForFetch(t, source) // startup cycle

	r.TriggerNow()
	waitForFetch(t, source)

	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}

func TestReconciler_StartAndStopAreIdempotent(t *testing.T) {
	userID := uuid.New()
	st := store.New(zap.NewNop())
	source := newMockBalanceSource()

	r := reconciliation.NewReconciler(userID, st, source, time.Hour, "", zap.NewNop())
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
}
