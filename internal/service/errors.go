package service

import (
	"errors"
	"fmt"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("document not found")
	ErrReaderNil     = errors.New("reader is nil")
	ErrBuyerRequired = errors.New("buyer address is required")
	ErrAccessDenied  = errors.New("access denied")
	// ErrDuplicateTransaction is matched by *DuplicatePurchaseError.
	ErrDuplicateTransaction = errors.New("transaction already recorded")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// PaymentRequiredError is the expected outcome of a purchase without payment.
type PaymentRequiredError struct {
	Challenge payment.Challenge
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment of %d satoshis required", e.Challenge.SatoshisRequired)
}

// PaymentRejectedError carries the failed verification. It never reaches the ledger.
type PaymentRejectedError struct {
	Verification payment.Verification
}

func (e *PaymentRejectedError) Error() string {
	return "payment rejected: " + e.Verification.Reason
}

// DuplicatePurchaseError means the transaction id is already in the ledger.
// Existing is the recorded row when it could be looked up.
type DuplicatePurchaseError struct {
	TransactionID string
	Existing      *model.Purchase
}

func (e *DuplicatePurchaseError) Error() string {
	return "transaction " + e.TransactionID + " already recorded"
}

func (e *DuplicatePurchaseError) Is(target error) bool {
	return target == ErrDuplicateTransaction
}
