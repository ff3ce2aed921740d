package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeSend    TransactionType = "send"
	TransactionTypeReceive TransactionType = "receive"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// IsValid checks if the status is a known status
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusConfirmed, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status transition is permitted
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// Transaction represents a transfer tracked by the wallet core. Status is
// monotone: once terminal the record is never mutated again.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	WalletID    uuid.UUID         `json:"wallet_id"`
	FromAddress string            `json:"from_address"`
	ToAddress   string            `json:"to_address"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Network     Network           `json:"network"`
	Type        TransactionType   `json:"type"`
	Status      TransactionStatus `json:"status"`
	GasFee      decimal.Decimal   `json:"gas_fee"`
	Hash        *string           `json:"hash,omitempty"`
	BlockNumber *int64            `json:"block_number,omitempty"`
	Version     int64             `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
}

// Validate performs validation on the transaction
func (t *Transaction) Validate() error {
	if t.WalletID == uuid.Nil {
		return fmt.Errorf("wallet ID is required")
	}

	if !t.Network.IsValid() {
		return fmt.Errorf("invalid network: %s", t.Network)
	}

	if !t.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}

	if !t.Status.IsValid() {
		return fmt.Errorf("invalid transaction status: %s", t.Status)
	}

	return nil
}
