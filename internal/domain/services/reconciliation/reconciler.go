// Package reconciliation periodically overwrites the store's optimistic
// balances with the authoritative values the backend reports, resolving
// drift introduced by optimistic debits.
package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
)

// BalanceSource fetches authoritative balances for a user's wallets,
// keyed by wallet ID
type BalanceSource interface {
	FetchBalances(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// Reconciler drives periodic and event-triggered balance reconciliation
// for one user session
type Reconciler struct {
	userID uuid.UUID
	store  *store.Store
	source BalanceSource
	logger *zap.Logger

	interval time.Duration
	cronSpec string
	cron     *cron.Cron

	stopCh    chan struct{}
	triggerCh chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// NewReconciler creates a balance reconciler. cronSpec is optional; when
// set it schedules additional runs on top of the fixed interval.
func NewReconciler(userID uuid.UUID, st *store.Store, source BalanceSource, interval time.Duration, cronSpec string, logger *zap.Logger) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		userID:    userID,
		store:     st,
		source:    source,
		logger:    logger,
		interval:  interval,
		cronSpec:  cronSpec,
		stopCh:    make(chan struct{}),
		triggerCh: make(chan struct{}, 1),
	}
}

// Start begins the reconciliation loop
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info("Starting balance reconciler",
		zap.Duration("interval", r.interval),
		zap.String("cron_spec", r.cronSpec))

	if r.cronSpec != "" {
		r.cron = cron.New()
		if _, err := r.cron.AddFunc(r.cronSpec, r.TriggerNow); err != nil {
			r.logger.Warn("Invalid reconciler cron spec, interval only",
				zap.String("cron_spec", r.cronSpec),
				zap.Error(err))
			r.cron = nil
		} else {
			r.cron.Start()
		}
	}

	r.wg.Add(1)
	go r.runLoop(ctx)

	return nil
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	if r.cron != nil {
		r.cron.Stop()
	}
	close(r.stopCh)
	r.wg.Wait()

	r.logger.Info("Balance reconciler stopped")
	return nil
}

// Shutdown implements graceful.Shutdowner
func (r *Reconciler) Shutdown(timeout time.Duration) error {
	return r.Stop()
}

// TriggerNow requests an immediate reconciliation cycle. Coalesces when a
// trigger is already pending.
func (r *Reconciler) TriggerNow() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// run once on start so a fresh session converges quickly
	r.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			r.logger.Info("Balance reconciler cancelled")
			return
		}
	}
}

// runOnce fetches authoritative balances and overwrites the store's
// values. A fetch failure leaves the existing balances untouched; the
// next cycle retries.
func (r *Reconciler) runOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balances, err := r.source.FetchBalances(fetchCtx, r.userID)
	if err != nil {
		r.logger.Warn("Balance fetch failed, keeping local values", zap.Error(err))
		return
	}

	reconciled := 0
	for _, wallet := range r.store.ListWallets() {
		balance, ok := balances[wallet.ID]
		if !ok {
			continue
		}
		r.store.SetAuthoritativeBalance(wallet.ID, balance)
		reconciled++
	}

	r.logger.Debug("Reconciliation cycle complete", zap.Int("wallets", reconciled))
}
