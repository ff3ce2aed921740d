// Package realtime translates the backend's pushed change-event stream
// into store mutations. The transport may deliver events out of order or
// more than once; the bridge passes them through unbuffered and relies on
// the store's version-checked merge for monotonicity.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
)

// Transport delivers change events pushed for a user
type Transport interface {
	Subscribe(ctx context.Context, userID uuid.UUID, handler func(entities.ChangeEvent)) (TransportSubscription, error)
}

// TransportSubscription is a cancellable transport-level subscription
type TransportSubscription interface {
	Unsubscribe() error
}

// ReconcileTrigger lets the bridge nudge the balance reconciler when a
// transfer confirms
type ReconcileTrigger interface {
	TriggerNow()
}

// Bridge consumes the change stream for one user session
type Bridge struct {
	transport Transport
	store     *store.Store
	trigger   ReconcileTrigger
	logger    *zap.Logger
}

// NewBridge creates a realtime event bridge. trigger may be nil.
func NewBridge(transport Transport, st *store.Store, trigger ReconcileTrigger, logger *zap.Logger) *Bridge {
	return &Bridge{
		transport: transport,
		store:     st,
		trigger:   trigger,
		logger:    logger,
	}
}

// Subscription is a cancellable bridge subscription. The caller owns its
// lifetime and must call Unsubscribe on session teardown; a dangling
// subscription firing into a stale store is a correctness bug.
type Subscription struct {
	sub    TransportSubscription
	logger *zap.Logger
	once   sync.Once
}

// Unsubscribe tears down the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if err := s.sub.Unsubscribe(); err != nil {
			s.logger.Warn("Transport unsubscribe failed", zap.Error(err))
		}
	})
}

// Subscribe starts consuming change events for the user. One subscription
// per active session.
func (b *Bridge) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := b.transport.Subscribe(ctx, userID, func(event entities.ChangeEvent) {
		b.route(userID, event)
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("Realtime subscription started", zap.String("user_id", userID.String()))
	return &Subscription{sub: sub, logger: b.logger}, nil
}

func (b *Bridge) route(userID uuid.UUID, event entities.ChangeEvent) {
	if err := event.Validate(); err != nil {
		b.logger.Warn("Dropping malformed change event", zap.Error(err))
		return
	}

	switch event.EntityType {
	case entities.EntityTypeWallet:
		if event.Wallet.UserID != userID {
			return
		}
		b.store.ApplyWalletDelta(event.Kind, *event.Wallet)

	case entities.EntityTypeTransaction:
		// transaction events carry no user id, so ownership is checked
		// through the wallet they reference
		if _, ok := b.store.GetWalletByID(event.Transaction.WalletID); !ok {
			b.logger.Warn("Dropping transaction event for unknown wallet",
				zap.String("wallet_id", event.Transaction.WalletID.String()))
			return
		}
		b.store.ApplyTransactionDelta(event.Kind, *event.Transaction)

		if event.Transaction.Status == entities.TransactionStatusConfirmed && b.trigger != nil {
			b.trigger.TriggerNow()
		}
	}
}
