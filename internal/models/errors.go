package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable code attached to every domain
// failure. Handlers map codes to HTTP statuses; clients branch on them to
// decide retry vs. abort.
type ErrorCode string

const (
	CodeInvalidAmount          ErrorCode = "invalid_amount"
	CodeInactiveAccount        ErrorCode = "inactive_account"
	CodeInsufficientBalance    ErrorCode = "insufficient_balance"
	CodeAccountNotFound        ErrorCode = "account_not_found"
	CodeDuplicateAccount       ErrorCode = "duplicate_account"
	CodeDuplicateTransaction   ErrorCode = "duplicate_transaction"
	CodeSelfTransfer           ErrorCode = "self_transfer_not_allowed"
	CodeInvalidAccountNumber   ErrorCode = "invalid_account_number_format"
	CodeNonZeroBalance         ErrorCode = "non_zero_balance"
	CodeInvalidStateTransition ErrorCode = "invalid_state_transition"
	CodeNumberSpaceExhausted   ErrorCode = "number_space_exhausted"
	CodeConcurrentModification ErrorCode = "concurrent_modification"
	CodeTransactionNotFound    ErrorCode = "transaction_not_found"
	CodeBankDetailsNotFound    ErrorCode = "bank_details_not_found"
	CodeInvalidArgument        ErrorCode = "invalid_argument"
)

// DomainError is a business-rule failure. TransactionID is set only for
// duplicate_transaction, where it references the ledger row that already
// consumed the idempotency key.
type DomainError struct {
	Code          ErrorCode
	Message       string
	TransactionID int64
}

func (e *DomainError) Error() string { return e.Message }

// NewDomainError builds a DomainError with a formatted message.
func NewDomainError(code ErrorCode, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewDuplicateTransaction reports an already-used idempotency key together
// with the ledger row that holds it.
func NewDuplicateTransaction(existingID int64) *DomainError {
	return &DomainError{
		Code:          CodeDuplicateTransaction,
		Message:       fmt.Sprintf("transaction with this idempotency key already exists (id %d)", existingID),
		TransactionID: existingID,
	}
}

// CodeOf extracts the domain code from err, or "" if err is not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }
