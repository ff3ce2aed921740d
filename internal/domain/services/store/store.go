// Package store holds the authoritative in-memory model of the current
// session's wallets and transactions. All other components read from it or
// submit deltas through its merge API; nothing else keeps a writable copy.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

// Event is an entity-level change notification delivered to subscribers
type Event struct {
	EntityType  entities.EntityType
	Kind        entities.ChangeKind
	Wallet      *entities.Wallet
	Transaction *entities.Transaction
}

// subscriber channels are buffered; a slow consumer drops events rather
// than blocking the store
const subscriberBuffer = 64

type pendingDebit struct {
	walletID uuid.UUID
	amount   decimal.Decimal
}

// Store is the single source of truth for the session's wallet and
// transaction collections
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	wallets     map[uuid.UUID]*entities.Wallet
	walletOrder []uuid.UUID
	byNetwork   map[entities.Network]uuid.UUID

	transactions map[uuid.UUID]*entities.Transaction
	txOrder      []uuid.UUID

	// optimistic debits keyed by transaction ID, reversed on FAILED or
	// CANCELLED and discarded once an authoritative balance lands
	pendingDebits map[uuid.UUID]pendingDebit

	selected *entities.Network

	subscribers map[int]chan Event
	nextSubID   int
}

// New creates an empty store
func New(logger *zap.Logger) *Store {
	return &Store{
		logger:        logger,
		wallets:       make(map[uuid.UUID]*entities.Wallet),
		byNetwork:     make(map[entities.Network]uuid.UUID),
		transactions:  make(map[uuid.UUID]*entities.Transaction),
		pendingDebits: make(map[uuid.UUID]pendingDebit),
		subscribers:   make(map[int]chan Event),
	}
}

// ListWallets returns the active wallets in creation order
func (s *Store) ListWallets() []entities.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]entities.Wallet, 0, len(s.walletOrder))
	for _, id := range s.walletOrder {
		if w := s.wallets[id]; w != nil && w.IsActive {
			wallets = append(wallets, *w)
		}
	}
	return wallets
}

// GetWallet returns the active wallet for a network. The second return
// value is false when no active wallet exists for the network.
func (s *Store) GetWallet(network entities.Network) (entities.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNetwork[network]
	if !ok {
		return entities.Wallet{}, false
	}
	w := s.wallets[id]
	if w == nil || !w.IsActive {
		return entities.Wallet{}, false
	}
	return *w, true
}

// GetWalletByID returns a wallet by ID
func (s *Store) GetWalletByID(id uuid.UUID) (entities.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[id]
	if !ok {
		return entities.Wallet{}, false
	}
	return *w, true
}

// ApplyWalletDelta merges a wallet change event into the store. The merge
// is idempotent: a delta whose version is not newer than the stored record
// is a no-op. Deletes soft-deactivate, never remove.
func (s *Store) ApplyWalletDelta(kind entities.ChangeKind, wallet entities.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case entities.ChangeKindDelete:
		stored, ok := s.wallets[wallet.ID]
		if !ok || !stored.IsActive {
			return
		}
		stored.IsActive = false
		stored.Version = maxVersion(stored.Version, wallet.Version)
		if s.byNetwork[stored.Network] == stored.ID {
			delete(s.byNetwork, stored.Network)
		}
		if s.selected != nil && *s.selected == stored.Network {
			s.selected = nil
		}
		s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: kind, Wallet: copyWallet(stored)})

	case entities.ChangeKindInsert, entities.ChangeKindUpdate:
		stored, exists := s.wallets[wallet.ID]
		if exists {
			if wallet.Version <= stored.Version {
				return
			}
			// reactivation is subject to the same one-active-wallet-per-network
			// rule as insertion
			if wallet.IsActive {
				if otherID, taken := s.byNetwork[wallet.Network]; taken && otherID != wallet.ID {
					s.logger.Warn("Dropping wallet delta for occupied network",
						zap.String("network", string(wallet.Network)),
						zap.String("wallet_id", wallet.ID.String()))
					return
				}
			}
			wasActive := stored.IsActive
			*stored = wallet
			// balances arriving on the change stream come from the
			// backend and are authoritative
			stored.BalanceConfidence = entities.BalanceAuthoritative
			s.dropDebitsForWalletLocked(stored.ID)
			s.reindexNetworkLocked(stored, wasActive)
			s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: kind, Wallet: copyWallet(stored)})
			return
		}

		// one active wallet per network: a second active wallet for an
		// occupied network is rejected deterministically
		if wallet.IsActive {
			if otherID, taken := s.byNetwork[wallet.Network]; taken && otherID != wallet.ID {
				s.logger.Warn("Dropping wallet delta for occupied network",
					zap.String("network", string(wallet.Network)),
					zap.String("wallet_id", wallet.ID.String()))
				return
			}
		}

		w := wallet
		if w.BalanceConfidence == "" {
			w.BalanceConfidence = entities.BalanceAuthoritative
		}
		s.wallets[w.ID] = &w
		s.walletOrder = append(s.walletOrder, w.ID)
		if w.IsActive {
			s.byNetwork[w.Network] = w.ID
		}
		s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: kind, Wallet: copyWallet(&w)})
	}
}

// ApplyTransactionDelta merges a transaction change event into the store.
// Terminal statuses are monotone: any delta against a terminal record is
// silently dropped, as is any delta with a stale version.
func (s *Store) ApplyTransactionDelta(kind entities.ChangeKind, tx entities.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == entities.ChangeKindDelete {
		// transactions are never deleted; the backend does not emit these
		s.logger.Warn("Ignoring transaction delete delta", zap.String("tx_id", tx.ID.String()))
		return
	}

	stored, exists := s.transactions[tx.ID]
	if exists {
		if stored.Status.IsTerminal() {
			return
		}
		if tx.Version <= stored.Version {
			return
		}
		prevStatus := stored.Status
		*stored = tx
		if prevStatus == entities.TransactionStatusPending && stored.Status.IsTerminal() {
			s.settleDebitLocked(stored)
		}
		s.notifyLocked(Event{EntityType: entities.EntityTypeTransaction, Kind: kind, Transaction: copyTransaction(stored)})
		return
	}

	t := tx
	s.transactions[t.ID] = &t
	s.txOrder = append(s.txOrder, t.ID)
	s.notifyLocked(Event{EntityType: entities.EntityTypeTransaction, Kind: kind, Transaction: copyTransaction(&t)})
}

// settleDebitLocked resolves the optimistic debit for a transaction that
// just reached a terminal state. FAILED and CANCELLED restore the debited
// amount; CONFIRMED leaves the projection in place until the reconciler
// overwrites it with the authoritative balance.
func (s *Store) settleDebitLocked(tx *entities.Transaction) {
	debit, ok := s.pendingDebits[tx.ID]
	if !ok {
		return
	}
	delete(s.pendingDebits, tx.ID)

	if tx.Status != entities.TransactionStatusFailed && tx.Status != entities.TransactionStatusCancelled {
		return
	}

	wallet, ok := s.wallets[debit.walletID]
	if !ok {
		return
	}
	wallet.Balance = wallet.Balance.Add(debit.amount)
	s.logger.Info("Restored optimistic debit",
		zap.String("tx_id", tx.ID.String()),
		zap.String("wallet_id", debit.walletID.String()),
		zap.String("amount", debit.amount.String()))
	s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: entities.ChangeKindUpdate, Wallet: copyWallet(wallet)})
}

// ApplyOptimisticDebit decrements a wallet's displayed balance for a
// just-submitted transfer. The debit is tracked against the transaction so
// it can be restored on failure and is never re-applied after an
// authoritative balance arrives.
func (s *Store) ApplyOptimisticDebit(walletID, txID uuid.UUID, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s not in store", walletID)
	}
	if wallet.Balance.LessThan(amount) {
		return fmt.Errorf("debit %s exceeds balance %s", amount, wallet.Balance)
	}

	wallet.Balance = wallet.Balance.Sub(amount)
	wallet.BalanceConfidence = entities.BalanceOptimistic
	s.pendingDebits[txID] = pendingDebit{walletID: walletID, amount: amount}

	s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: entities.ChangeKindUpdate, Wallet: copyWallet(wallet)})
	return nil
}

// SetAuthoritativeBalance overwrites a wallet's balance with the value the
// backend reports. Pending debits for the wallet are discarded so they can
// neither re-apply nor restore against the authoritative value.
func (s *Store) SetAuthoritativeBalance(walletID uuid.UUID, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.wallets[walletID]
	if !ok {
		return
	}

	wallet.Balance = balance
	wallet.BalanceConfidence = entities.BalanceAuthoritative
	s.dropDebitsForWalletLocked(walletID)

	s.notifyLocked(Event{EntityType: entities.EntityTypeWallet, Kind: entities.ChangeKindUpdate, Wallet: copyWallet(wallet)})
}

// Transactions returns the wallet's transactions in creation order
func (s *Store) Transactions(walletID uuid.UUID) []entities.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []entities.Transaction
	for _, id := range s.txOrder {
		if t := s.transactions[id]; t != nil && t.WalletID == walletID {
			txs = append(txs, *t)
		}
	}
	return txs
}

// GetTransaction returns a transaction by ID
func (s *Store) GetTransaction(id uuid.UUID) (entities.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return entities.Transaction{}, false
	}
	return *t, true
}

// SetSelectedWallet records the UI's selected network. The network must
// resolve to an active wallet; the empty string clears the selection.
func (s *Store) SetSelectedWallet(network entities.Network) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if network == "" {
		s.selected = nil
		return nil
	}

	id, ok := s.byNetwork[network]
	if !ok {
		return fmt.Errorf("no active wallet for network %s", network)
	}
	if w := s.wallets[id]; w == nil || !w.IsActive {
		return fmt.Errorf("no active wallet for network %s", network)
	}

	n := network
	s.selected = &n
	return nil
}

// SelectedWallet returns the selected network, if any
func (s *Store) SelectedWallet() (entities.Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == nil {
		return "", false
	}
	return *s.selected, true
}

// Subscribe registers for change notifications. The returned cancel
// function must be called on teardown; it closes the channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Reset wipes all state. Called on session teardown or user switch.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets = make(map[uuid.UUID]*entities.Wallet)
	s.walletOrder = nil
	s.byNetwork = make(map[entities.Network]uuid.UUID)
	s.transactions = make(map[uuid.UUID]*entities.Transaction)
	s.txOrder = nil
	s.pendingDebits = make(map[uuid.UUID]pendingDebit)
	s.selected = nil

	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Store) dropDebitsForWalletLocked(walletID uuid.UUID) {
	for txID, debit := range s.pendingDebits {
		if debit.walletID == walletID {
			delete(s.pendingDebits, txID)
		}
	}
}

func (s *Store) reindexNetworkLocked(wallet *entities.Wallet, wasActive bool) {
	if wallet.IsActive {
		s.byNetwork[wallet.Network] = wallet.ID
		return
	}
	if wasActive && s.byNetwork[wallet.Network] == wallet.ID {
		delete(s.byNetwork, wallet.Network)
		if s.selected != nil && *s.selected == wallet.Network {
			s.selected = nil
		}
	}
}

func (s *Store) notifyLocked(event Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop
		}
	}
}

func copyWallet(w *entities.Wallet) *entities.Wallet {
	c := *w
	return &c
}

func copyTransaction(t *entities.Transaction) *entities.Transaction {
	c := *t
	return &c
}

func maxVersion(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
