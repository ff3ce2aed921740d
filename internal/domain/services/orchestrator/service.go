// Package orchestrator validates and submits transfers. It owns the
// PENDING phase of a transaction's life: submission returns as soon as the
// pending record exists, and confirmation arrives later over the realtime
// change stream.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	domainerrors "github.com/Fortis-Ledger/payoova2-sub000/internal/domain/errors"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/gas"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
)

// FeeEstimator produces a fee estimate for a prospective transfer
type FeeEstimator interface {
	Estimate(ctx context.Context, network entities.Network, amount decimal.Decimal, tier entities.GasTier) (gas.FeeEstimate, error)
}

// Recorder is the persistence collaborator. The orchestrator treats it as
// "write record, get it back"; confirmation is not its concern.
type Recorder interface {
	InsertTransaction(ctx context.Context, tx *entities.Transaction) error
	CreateWallet(ctx context.Context, userID uuid.UUID, network entities.Network) (*entities.Wallet, error)
}

// SubmitRequest is a transfer submission from the UI layer
type SubmitRequest struct {
	WalletID  uuid.UUID
	ToAddress string
	Amount    string
	Network   entities.Network
	Tier      entities.GasTier
}

// Service orchestrates transfer submission for one user session
type Service struct {
	userID    uuid.UUID
	store     *store.Store
	estimator FeeEstimator
	recorder  Recorder
	logger    *zap.Logger
}

// NewService creates an orchestrator bound to the session's user
func NewService(userID uuid.UUID, st *store.Store, estimator FeeEstimator, recorder Recorder, logger *zap.Logger) *Service {
	return &Service{
		userID:    userID,
		store:     st,
		estimator: estimator,
		recorder:  recorder,
		logger:    logger,
	}
}

// Submit validates and submits a transfer. Validation failures return a
// typed error and leave no trace: no record is created and no balance is
// touched. On success the pending transaction is persisted, the sending
// wallet's balance is optimistically debited by amount plus gas fee, and
// the transaction is returned without waiting for confirmation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*entities.Transaction, error) {
	wallet, ok := s.store.GetWalletByID(req.WalletID)
	if !ok || !wallet.IsActive || wallet.UserID != s.userID || wallet.Network != req.Network {
		return nil, domainerrors.WalletNotFoundError(req.WalletID.String())
	}

	if !req.Network.ValidAddress(req.ToAddress) {
		return nil, domainerrors.InvalidAddressError(string(req.Network), req.ToAddress)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, domainerrors.InvalidAmountError(req.Amount)
	}

	estimate, err := s.estimator.Estimate(ctx, req.Network, amount, req.Tier)
	if err != nil {
		return nil, domainerrors.Wrap(err, "fee estimate")
	}

	if estimate.TotalCost.GreaterThan(wallet.Balance) {
		return nil, domainerrors.InsufficientBalanceError(estimate.TotalCost.String(), wallet.Balance.String())
	}

	now := time.Now().UTC()
	tx := &entities.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		FromAddress: wallet.Address,
		ToAddress:   req.ToAddress,
		Amount:      amount,
		Currency:    req.Network.NativeCurrency(),
		Network:     req.Network,
		Type:        entities.TransactionTypeSend,
		Status:      entities.TransactionStatusPending,
		GasFee:      estimate.GasFee,
		Version:     1,
		CreatedAt:   now,
	}

	if err := s.recorder.InsertTransaction(ctx, tx); err != nil {
		s.logger.Error("Backend rejected transaction write",
			zap.String("wallet_id", wallet.ID.String()),
			zap.Error(err))
		return nil, domainerrors.SubmissionFailedError(err)
	}

	s.store.ApplyTransactionDelta(entities.ChangeKindInsert, *tx)
	if err := s.store.ApplyOptimisticDebit(wallet.ID, tx.ID, estimate.TotalCost); err != nil {
		// balance moved between validation and debit; the reconciler
		// will settle the displayed value on its next cycle
		s.logger.Warn("Optimistic debit not applied", zap.Error(err))
	}

	s.logger.Info("Transfer submitted",
		zap.String("tx_id", tx.ID.String()),
		zap.String("network", string(req.Network)),
		zap.String("amount", amount.String()),
		zap.String("gas_fee", estimate.GasFee.String()),
		zap.String("fee_source", string(estimate.Source)))

	return tx, nil
}

// CreateWallet provisions a wallet for the session user on the given
// network. A second active wallet for an occupied network is rejected.
func (s *Service) CreateWallet(ctx context.Context, network entities.Network) (*entities.Wallet, error) {
	if !network.IsValid() {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInvalidInput, "INVALID_NETWORK", "unsupported network: "+string(network))
	}

	if _, exists := s.store.GetWallet(network); exists {
		return nil, domainerrors.WalletConflictError(string(network))
	}

	wallet, err := s.recorder.CreateWallet(ctx, s.userID, network)
	if err != nil {
		return nil, domainerrors.Wrap(err, "create wallet")
	}

	s.store.ApplyWalletDelta(entities.ChangeKindInsert, *wallet)

	s.logger.Info("Wallet created",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("network", string(network)))

	return wallet, nil
}
