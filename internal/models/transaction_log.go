package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxnCredit   TransactionType = "CREDIT"
	TxnDebit    TransactionType = "DEBIT"
	TxnTransfer TransactionType = "TRANSFER"
)

type TransactionStatus string

const (
	TxnPending TransactionStatus = "PENDING"
	TxnSuccess TransactionStatus = "SUCCESS"
	TxnFailed  TransactionStatus = "FAILED"
)

// TransactionLog is one immutable audit record per transfer attempt. IDs are
// assigned monotonically by the store so warehouse readers can track a
// high-water mark. Pure credit/debit and external-debit rows self-reference
// (FromAccountID == ToAccountID) to keep the schema uniform.
//
// Snapshot fields are nil when the corresponding side was not involved:
// SUCCESS rows carry after-snapshots for every involved side, FAILED rows
// carry before-snapshots and a failure reason but never after-snapshots.
type TransactionLog struct {
	ID              int64             `json:"id"`
	FromAccountID   int64             `json:"from_account_id"`
	ToAccountID     int64             `json:"to_account_id"`
	Amount          decimal.Decimal   `json:"amount"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	TransactionDate time.Time         `json:"transaction_date"`
	Description     string            `json:"description"`

	FromBalanceBefore *decimal.Decimal `json:"from_balance_before,omitempty"`
	FromBalanceAfter  *decimal.Decimal `json:"from_balance_after,omitempty"`
	ToBalanceBefore   *decimal.Decimal `json:"to_balance_before,omitempty"`
	ToBalanceAfter    *decimal.Decimal `json:"to_balance_after,omitempty"`

	IdempotencyKey *string `json:"idempotency_key,omitempty"`
	FailureReason  *string `json:"failure_reason,omitempty"`
}

// Snapshot returns a pointer to a copy of d, for the nullable snapshot fields.
func Snapshot(d decimal.Decimal) *decimal.Decimal { return &d }

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsTerminal reports whether the row has reached SUCCESS or FAILED.
func (t *TransactionLog) IsTerminal() bool {
	return t.Status == TxnSuccess || t.Status == TxnFailed
}
