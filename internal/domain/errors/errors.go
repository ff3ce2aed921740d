// Package errors provides standardized error types for the wallet core.
// Synchronous validation failures are returned as typed errors from the
// orchestrator; asynchronous failures surface as transaction state changes
// and never as errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrWalletNotFound indicates the wallet does not resolve to an active
	// wallet owned by the caller
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletConflict indicates the user already holds an active wallet
	// on the requested network
	ErrWalletConflict = errors.New("wallet already exists for network")

	// ErrInvalidAddress indicates the destination address does not match
	// the network's address format
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidAmount indicates the amount is not a positive decimal
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientBalance indicates amount plus estimated gas exceeds
	// the wallet's current balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSubmissionFailed indicates the backend rejected the pending
	// transaction write; no record was created
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrTransactionNotFound indicates the transaction is not in the store
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request is not authorized
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err     error
	Code    string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(err error, code, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// WalletNotFoundError creates a wallet not found error
func WalletNotFoundError(walletID string) *DomainError {
	return &DomainError{
		Err:     ErrWalletNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
		Details: map[string]interface{}{"wallet_id": walletID},
	}
}

// InvalidAddressError creates an invalid address error
func InvalidAddressError(network, address string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidAddress,
		Code:    "INVALID_ADDRESS",
		Message: fmt.Sprintf("address is not valid for network %s", network),
		Details: map[string]interface{}{"network": network, "address": address},
	}
}

// InvalidAmountError creates an invalid amount error
func InvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidAmount,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive decimal",
		Details: map[string]interface{}{"amount": amount},
	}
}

// InsufficientBalanceError creates an insufficient balance error
func InsufficientBalanceError(required, available string) *DomainError {
	return &DomainError{
		Err:     ErrInsufficientBalance,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "amount plus gas fee exceeds wallet balance",
		Details: map[string]interface{}{"required": required, "available": available},
	}
}

// SubmissionFailedError creates a submission failed error
func SubmissionFailedError(err error) *DomainError {
	de := &DomainError{
		Err:     ErrSubmissionFailed,
		Code:    "SUBMISSION_FAILED",
		Message: "backend rejected the transaction write",
	}
	if err != nil {
		de.Details = map[string]interface{}{"cause": err.Error()}
	}
	return de
}

// WalletConflictError creates a wallet conflict error
func WalletConflictError(network string) *DomainError {
	return &DomainError{
		Err:     ErrWalletConflict,
		Code:    "WALLET_CONFLICT",
		Message: fmt.Sprintf("an active wallet already exists for network %s", network),
		Details: map[string]interface{}{"network": network},
	}
}

// Error helpers for common patterns

// IsWalletNotFound checks if an error is a wallet not found error
func IsWalletNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}

// IsValidation checks if an error is a local validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidInput)
}

// IsInsufficientBalance checks if an error is an insufficient balance error
func IsInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

// IsSubmissionFailed checks if an error is a submission failed error
func IsSubmissionFailed(err error) bool {
	return errors.Is(err, ErrSubmissionFailed)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
