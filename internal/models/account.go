package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountLocked AccountStatus = "LOCKED"
	AccountClosed AccountStatus = "CLOSED"
)

// MaxTransactionAmount is the per-operation ceiling for debits and credits.
var MaxTransactionAmount = decimal.NewFromInt(1_000_000)

// Account is the ledger-tracked balance holder. Balance and Status must only
// change through Debit/Credit/Lock/Activate/Close; the version counter backs
// optimistic concurrency in the store.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	HolderName    string          `json:"holder_name"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// NewAccount returns an ACTIVE account with the given opening balance.
// Number/holder uniqueness and minimum-balance policy live in the account
// service; this only sets the initial state.
func NewAccount(accountNumber, holderName string, balance decimal.Decimal) *Account {
	now := time.Now()
	return &Account{
		AccountNumber: accountNumber,
		HolderName:    holderName,
		Balance:       balance,
		Status:        AccountActive,
		CreatedAt:     now,
		LastUpdated:   now,
	}
}

// ValidateAmount enforces the shared amount policy: strictly positive and at
// most MaxTransactionAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return NewDomainError(CodeInvalidAmount, "transaction amount must be greater than zero")
	}
	if amount.GreaterThan(MaxTransactionAmount) {
		return NewDomainError(CodeInvalidAmount, "transaction amount exceeds maximum limit of %s", MaxTransactionAmount)
	}
	return nil
}

// Debit withdraws amount. The account must be ACTIVE, the amount within
// policy, and the balance sufficient.
func (a *Account) Debit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if err := a.requireActive(); err != nil {
		return err
	}
	if a.Balance.LessThan(amount) {
		return NewDomainError(CodeInsufficientBalance,
			"insufficient balance: available %s, required %s", a.Balance, amount)
	}
	a.Balance = a.Balance.Sub(amount)
	a.LastUpdated = time.Now()
	return nil
}

// Credit deposits amount. Same amount/status rules as Debit, without the
// sufficiency check.
func (a *Account) Credit(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if err := a.requireActive(); err != nil {
		return err
	}
	a.Balance = a.Balance.Add(amount)
	a.LastUpdated = time.Now()
	return nil
}

// Lock blocks all transactions on the account. Idempotent.
func (a *Account) Lock() {
	a.Status = AccountLocked
	a.LastUpdated = time.Now()
}

// Activate reopens a LOCKED account. CLOSED is terminal.
func (a *Account) Activate() error {
	if a.Status == AccountClosed {
		return NewDomainError(CodeInvalidStateTransition, "cannot reactivate a closed account")
	}
	a.Status = AccountActive
	a.LastUpdated = time.Now()
	return nil
}

// Close permanently closes the account. The balance must be exactly zero.
func (a *Account) Close() error {
	if !a.Balance.IsZero() {
		return NewDomainError(CodeNonZeroBalance,
			"cannot close account with non-zero balance: %s", a.Balance)
	}
	a.Status = AccountClosed
	a.LastUpdated = time.Now()
	return nil
}

func (a *Account) IsActive() bool { return a.Status == AccountActive }
func (a *Account) IsLocked() bool { return a.Status == AccountLocked }
func (a *Account) IsClosed() bool { return a.Status == AccountClosed }

func (a *Account) requireActive() error {
	switch a.Status {
	case AccountLocked:
		return NewDomainError(CodeInactiveAccount, "account %s is LOCKED", a.AccountNumber)
	case AccountClosed:
		return NewDomainError(CodeInactiveAccount, "account %s is CLOSED, no transactions allowed", a.AccountNumber)
	case AccountActive:
		return nil
	default:
		return NewDomainError(CodeInactiveAccount, "account %s is not active: %s", a.AccountNumber, a.Status)
	}
}
