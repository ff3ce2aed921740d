// Package handlers exposes the wallet core to the UI layer over HTTP.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
	domainerrors "github.com/Fortis-Ledger/payoova2-sub000/internal/domain/errors"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/gas"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/orchestrator"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/pricing"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/services/store"
	"github.com/Fortis-Ledger/payoova2-sub000/internal/session"
)

// CoreHandlers handles wallet core operations
type CoreHandlers struct {
	sessions  *session.Manager
	store     *store.Store
	prices    *pricing.Cache
	estimator *gas.Estimator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCoreHandlers creates a new CoreHandlers instance
func NewCoreHandlers(sessions *session.Manager, st *store.Store, prices *pricing.Cache, estimator *gas.Estimator, logger *zap.Logger) *CoreHandlers {
	return &CoreHandlers{
		sessions:  sessions,
		store:     st,
		prices:    prices,
		estimator: estimator,
		validator: validator.New(),
		logger:    logger,
	}
}

// BeginSessionRequest carries the identity provider's token
type BeginSessionRequest struct {
	Token string `json:"token" validate:"required"`
}

// BeginSession handles POST /session
func (h *CoreHandlers) BeginSession(c *gin.Context) {
	var req BeginSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "request body could not be parsed")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	sess, err := h.sessions.Begin(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnauthorized) {
			SendUnauthorized(c, "identity token rejected")
			return
		}
		h.logger.Error("Session begin failed", zap.Error(err))
		SendInternalError(c, "SESSION_FAILED", "could not start session")
		return
	}

	SendCreated(c, gin.H{"user_id": sess.UserID})
}

// EndSession handles DELETE /session
func (h *CoreHandlers) EndSession(c *gin.Context) {
	h.sessions.EndCurrent()
	SendNoContent(c)
}

// ListWallets handles GET /wallets
func (h *CoreHandlers) ListWallets(c *gin.Context) {
	if _, ok := h.sessions.Current(); !ok {
		SendUnauthorized(c, "no active session")
		return
	}
	SendSuccess(c, gin.H{"wallets": h.store.ListWallets()})
}

// CreateWalletRequest asks for a wallet on one network
type CreateWalletRequest struct {
	Network string `json:"network" validate:"required"`
}

// CreateWallet handles POST /wallets
func (h *CoreHandlers) CreateWallet(c *gin.Context) {
	sess, ok := h.sessions.Current()
	if !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "request body could not be parsed")
		return
	}

	wallet, err := sess.Orchestrator.CreateWallet(c.Request.Context(), entities.Network(req.Network))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	SendCreated(c, wallet)
}

// GetBalance handles GET /wallets/:network/balance
func (h *CoreHandlers) GetBalance(c *gin.Context) {
	if _, ok := h.sessions.Current(); !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	network := entities.Network(c.Param("network"))
	wallet, ok := h.store.GetWallet(network)
	if !ok {
		SendNotFound(c, "WALLET_NOT_FOUND", "no active wallet for network")
		return
	}

	SendSuccess(c, gin.H{
		"network":    wallet.Network,
		"balance":    wallet.Balance,
		"confidence": wallet.BalanceConfidence,
	})
}

// SelectWalletRequest selects the UI's active network
type SelectWalletRequest struct {
	Network string `json:"network"`
}

// SelectWallet handles PUT /wallets/selected
func (h *CoreHandlers) SelectWallet(c *gin.Context) {
	if _, ok := h.sessions.Current(); !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	var req SelectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "request body could not be parsed")
		return
	}

	if err := h.store.SetSelectedWallet(entities.Network(req.Network)); err != nil {
		SendNotFound(c, "WALLET_NOT_FOUND", err.Error())
		return
	}
	SendNoContent(c)
}

// SubmitTransactionRequest is a transfer submission
type SubmitTransactionRequest struct {
	WalletID  string `json:"wallet_id" validate:"required,uuid"`
	ToAddress string `json:"to_address" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Network   string `json:"network" validate:"required"`
	Tier      string `json:"tier"`
}

// SubmitTransaction handles POST /transactions
func (h *CoreHandlers) SubmitTransaction(c *gin.Context) {
	sess, ok := h.sessions.Current()
	if !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	var req SubmitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "request body could not be parsed")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		SendBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "wallet_id is not a UUID")
		return
	}

	tx, err := sess.Orchestrator.Submit(c.Request.Context(), orchestrator.SubmitRequest{
		WalletID:  walletID,
		ToAddress: req.ToAddress,
		Amount:    req.Amount,
		Network:   entities.Network(req.Network),
		Tier:      entities.GasTier(req.Tier),
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	SendCreated(c, tx)
}

// ListTransactions handles GET /transactions?wallet_id=
func (h *CoreHandlers) ListTransactions(c *gin.Context) {
	if _, ok := h.sessions.Current(); !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	walletID, err := uuid.Parse(c.Query("wallet_id"))
	if err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "wallet_id is not a UUID")
		return
	}
	SendSuccess(c, gin.H{"transactions": h.store.Transactions(walletID)})
}

// EstimateFee handles GET /estimate?network=&amount=&tier=
func (h *CoreHandlers) EstimateFee(c *gin.Context) {
	network := entities.Network(c.Query("network"))
	amount, err := decimal.NewFromString(c.DefaultQuery("amount", "0"))
	if err != nil {
		SendBadRequest(c, "INVALID_REQUEST", "amount is not a decimal")
		return
	}

	estimate, err := h.estimator.Estimate(c.Request.Context(), network, amount, entities.GasTier(c.Query("tier")))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	SendSuccess(c, estimate)
}

// GetPrices handles GET /prices?symbols=ETH,MATIC
func (h *CoreHandlers) GetPrices(c *gin.Context) {
	symbols := strings.Split(c.DefaultQuery("symbols", "ETH"), ",")
	quotes, source := h.prices.GetPrices(c.Request.Context(), symbols)
	SendSuccess(c, gin.H{"prices": quotes, "source": source})
}

// StreamEvents handles GET /events as a server-sent event stream of
// entity-level store changes
func (h *CoreHandlers) StreamEvents(c *gin.Context) {
	if _, ok := h.sessions.Current(); !ok {
		SendUnauthorized(c, "no active session")
		return
	}

	events, cancel := h.store.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Health handles GET /health
func (h *CoreHandlers) Health(c *gin.Context) {
	SendSuccess(c, gin.H{"status": "ok"})
}

func (h *CoreHandlers) respondDomainError(c *gin.Context, err error) {
	code := domainerrors.GetErrorCode(err)
	switch {
	case domainerrors.IsWalletNotFound(err):
		SendNotFound(c, code, err.Error())
	case errors.Is(err, domainerrors.ErrWalletConflict):
		SendConflict(c, code, err.Error())
	case domainerrors.IsValidation(err), domainerrors.IsInsufficientBalance(err):
		SendUnprocessable(c, code, err.Error())
	case domainerrors.IsSubmissionFailed(err):
		respondError(c, http.StatusBadGateway, code, err.Error(), nil)
	default:
		h.logger.Error("Unhandled domain error", zap.Error(err))
		SendInternalError(c, "INTERNAL_ERROR", "internal error")
	}
}
