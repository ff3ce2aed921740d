package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceConfidence marks whether a wallet balance is a locally projected
// value or the authoritative value reported by the backend
type BalanceConfidence string

const (
	BalanceOptimistic    BalanceConfidence = "optimistic"
	BalanceAuthoritative BalanceConfidence = "authoritative"
)

// Wallet represents a user's wallet on one network
type Wallet struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Network           Network           `json:"network"`
	Address           string            `json:"address"`
	Balance           decimal.Decimal   `json:"balance"`
	BalanceConfidence BalanceConfidence `json:"balance_confidence"`
	IsPrimary         bool              `json:"is_primary"`
	IsActive          bool              `json:"is_active"`
	Version           int64             `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Validate performs validation on the wallet
func (w *Wallet) Validate() error {
	if w.UserID == uuid.Nil {
		return fmt.Errorf("user ID is required")
	}

	if !w.Network.IsValid() {
		return fmt.Errorf("invalid network: %s", w.Network)
	}

	if w.Address == "" {
		return fmt.Errorf("wallet address is required")
	}

	if w.Balance.IsNegative() {
		return fmt.Errorf("wallet balance cannot be negative")
	}

	return nil
}

// GetDisplayAddress returns a user-friendly display of the address
func (w *Wallet) GetDisplayAddress() string {
	if len(w.Address) <= 8 {
		return w.Address
	}
	return fmt.Sprintf("%s...%s", w.Address[:6], w.Address[len(w.Address)-4:])
}
