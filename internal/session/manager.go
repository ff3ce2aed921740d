// Package session manages the per-user lifecycle of the wallet core: it
// derives the user from an identity token, seeds the store from the
// backend, starts the realtime bridge and the balance reconciler, and
// tears everything down on logout or user switch.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	domainerrors "github.com/Fortis-Ledger/payoova2-sub000/internal/domain/errors"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/orchestrator"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/realtime"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/reconciliation"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
)

// Backend is the persistence collaborator surface the session needs
type Backend interface {
	InsertTransaction(ctx context.Context, tx *entities.Transaction) error
	CreateWallet(ctx context.Context, userID uuid.UUID, network entities.Network) (*entities.Wallet, error)
	ListWallets(ctx context.Context, userID uuid.UUID) ([]entities.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]entities.Transaction, error)
	FetchBalances(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// ReconcilerConfig holds per-session reconciler settings
type ReconcilerConfig struct {
	Interval time.Duration
	CronSpec string
}

// Session is one user's active wallet core session
type Session struct {
	UserID       uuid.UUID
	Orchestrator *orchestrator.Service

	subscription *realtime.Subscription
	reconciler   *reconciliation.Reconciler
	store        *store.Store
	logger       *zap.Logger
	once         sync.Once
}

// End tears down the session: unsubscribes from the change stream, stops
// the reconciler, and resets the store. Safe to call more than once.
func (s *Session) End() {
	s.once.Do(func() {
		s.subscription.Unsubscribe()
		if err := s.reconciler.Stop(); err != nil {
			s.logger.Warn("Reconciler stop failed", zap.Error(err))
		}
		s.store.Reset()
		s.logger.Info("Session ended", zap.String("user_id", s.UserID.String()))
	})
}

// Manager builds and replaces sessions. At most one session is active;
// beginning a session for a new user ends the previous one first.
type Manager struct {
	store     *store.Store
	estimator orchestrator.FeeEstimator
	backend   Backend
	transport realtime.Transport
	reconcCfg ReconcilerConfig
	logger    *zap.Logger

	mu      sync.Mutex
	current *Session
}

// NewManager creates a session manager
func NewManager(st *store.Store, estimator orchestrator.FeeEstimator, backend Backend, transport realtime.Transport, reconcCfg ReconcilerConfig, logger *zap.Logger) *Manager {
	return &Manager{
		store:     st,
		estimator: estimator,
		backend:   backend,
		transport: transport,
		reconcCfg: reconcCfg,
		logger:    logger,
	}
}

// Begin starts a session for the user identified by the token. The token
// comes from the external identity provider; the core only extracts the
// subject claim and treats verification as the provider's responsibility.
func (m *Manager) Begin(ctx context.Context, token string) (*Session, error) {
	userID, err := UserIDFromToken(token)
	if err != nil {
		return nil, err
	}
	return m.BeginForUser(ctx, userID)
}

// BeginForUser starts a session for a known user ID
func (m *Manager) BeginForUser(ctx context.Context, userID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.End()
		m.current = nil
	}

	if err := m.seed(ctx, userID); err != nil {
		m.store.Reset()
		return nil, fmt.Errorf("seed session state: %w", err)
	}

	reconciler := reconciliation.NewReconciler(userID, m.store, m.backend, m.reconcCfg.Interval, m.reconcCfg.CronSpec, m.logger)
	bridge := realtime.NewBridge(m.transport, m.store, reconciler, m.logger)

	subscription, err := bridge.Subscribe(ctx, userID)
	if err != nil {
		m.store.Reset()
		return nil, fmt.Errorf("subscribe to change stream: %w", err)
	}

	if err := reconciler.Start(ctx); err != nil {
		subscription.Unsubscribe()
		m.store.Reset()
		return nil, fmt.Errorf("start reconciler: %w", err)
	}

	session := &Session{
		UserID:       userID,
		Orchestrator: orchestrator.NewService(userID, m.store, m.estimator, m.backend, m.logger),
		subscription: subscription,
		reconciler:   reconciler,
		store:        m.store,
		logger:       m.logger,
	}
	m.current = session

	m.logger.Info("Session started", zap.String("user_id", userID.String()))
	return session, nil
}

// Current returns the active session, if any
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// EndCurrent ends the active session, if any
func (m *Manager) EndCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.End()
		m.current = nil
	}
}

// Shutdown implements graceful.Shutdowner
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.EndCurrent()
	return nil
}

// seed loads the user's wallets and transactions through the store's
// merge API so a replayed record cannot regress newer realtime state
func (m *Manager) seed(ctx context.Context, userID uuid.UUID) error {
	wallets, err := m.backend.ListWallets(ctx, userID)
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}
	for _, w := range wallets {
		m.store.ApplyWalletDelta(entities.ChangeKindInsert, w)
	}

	txs, err := m.backend.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range txs {
		m.store.ApplyTransactionDelta(entities.ChangeKindInsert, tx)
	}
	return nil
}

// UserIDFromToken extracts the subject claim from an identity token
// without verifying the signature; the identity provider is trusted to
// have done that.
func UserIDFromToken(token string) (uuid.UUID, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return uuid.Nil, domainerrors.NewDomainError(domainerrors.ErrUnauthorized, "INVALID_TOKEN", "identity token could not be parsed")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, domainerrors.NewDomainError(domainerrors.ErrUnauthorized, "INVALID_TOKEN", "identity token has no subject")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, domainerrors.NewDomainError(domainerrors.ErrUnauthorized, "INVALID_TOKEN", "identity token subject is not a user ID")
	}
	return userID, nil
}
