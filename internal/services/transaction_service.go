package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/acmebank/mts-backend/internal/accountnum"
	"github.com/acmebank/mts-backend/internal/metrics"
	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// DefaultProvisionBalance is the opening balance of an account materialized
// from a bank-details record during transfer-by-number.
var DefaultProvisionBalance = decimal.RequireFromString("10000.00")

// TransactionService is the transfer engine: the sole writer of ledger rows
// and the sole orchestrator of cross-account mutation. Every transfer runs
// inside one store transaction; the store's unique idempotency index and the
// accounts' version-checked saves carry correctness across processes, so the
// engine holds no locks of its own.
type TransactionService struct {
	store repo.Store
}

func NewTransactionService(store repo.Store) *TransactionService {
	return &TransactionService{store: store}
}

// ExecuteIdempotentTransfer moves amount between two accounts exactly once
// per idempotency key.
//
// The happy path commits the PENDING→SUCCESS ledger row and both account
// saves as one atomic unit. A debit/credit failure rolls that unit back and
// commits a FAILED row (before-snapshots plus failure reason) as a separate
// smaller unit, then re-raises the original error. Guard failures before the
// mutation (duplicate key, self-transfer, missing account, invalid amount)
// surface with no ledger side effect.
func (s *TransactionService) ExecuteIdempotentTransfer(ctx context.Context, fromID, toID int64,
	amount decimal.Decimal, idempotencyKey, description string) (*models.TransactionLog, error) {

	slog.Info("executing idempotent transfer",
		"key", idempotencyKey, "from", fromID, "to", toID, "amount", amount)

	repos := s.store.Repos()

	// Fast-path duplicate check. Inherently racy; the unique index inside
	// the transaction below is the authoritative arbiter.
	if idempotencyKey != "" {
		if existing, err := repos.TransactionLogs.FindByIdempotencyKey(ctx, idempotencyKey); err == nil {
			slog.Warn("duplicate transaction detected", "key", idempotencyKey, "existing_id", existing.ID)
			return nil, models.NewDuplicateTransaction(existing.ID)
		} else if !models.IsCode(err, models.CodeTransactionNotFound) {
			return nil, err
		}
	}

	if fromID == toID {
		return nil, models.NewDomainError(models.CodeSelfTransfer, "self-transfer is not allowed")
	}
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if description == "" {
		description = fmt.Sprintf("Transfer from account %d to %d", fromID, toID)
	}

	var (
		entry   *models.TransactionLog
		mutErr  error
		failRow *models.TransactionLog
	)
	txErr := s.store.WithTx(ctx, func(r repo.Repositories) error {
		from, err := r.Accounts.FindByID(ctx, fromID)
		if err != nil {
			return senderNotFound(err, fromID)
		}
		to, err := r.Accounts.FindByID(ctx, toID)
		if err != nil {
			return receiverNotFound(err, toID)
		}

		entry = &models.TransactionLog{
			FromAccountID:     from.ID,
			ToAccountID:       to.ID,
			Amount:            amount,
			Type:              models.TxnTransfer,
			Status:            models.TxnPending,
			Description:       description,
			FromBalanceBefore: models.Snapshot(from.Balance),
			ToBalanceBefore:   models.Snapshot(to.Balance),
			IdempotencyKey:    models.StrPtr(idempotencyKey),
		}
		// Claims the idempotency key before any balance changes. A
		// concurrent caller with the same key conflicts here and loses.
		if err := r.TransactionLogs.Create(ctx, entry); err != nil {
			return err
		}

		if err := s.mutate(ctx, r, from, to, amount); err != nil {
			// Roll back the account writes and the PENDING row; the
			// FAILED audit row is written outside this transaction.
			mutErr = err
			failRow = failedCopy(entry, err)
			return err
		}

		entry.FromBalanceAfter = models.Snapshot(from.Balance)
		entry.ToBalanceAfter = models.Snapshot(to.Balance)
		entry.Status = models.TxnSuccess
		return r.TransactionLogs.Update(ctx, entry)
	})

	if txErr != nil {
		return nil, s.afterFailedTransfer(ctx, txErr, mutErr, failRow, idempotencyKey)
	}

	metrics.TransactionsTotal.WithLabelValues(string(models.TxnTransfer)).Inc()
	slog.Info("transfer completed", "id", entry.ID, "key", idempotencyKey)
	return entry, nil
}

// ExecuteTransferByAccountNumber transfers between account numbers. A sender
// number without a ledger account is auto-provisioned from its bank-details
// record. A recipient number with no ledger account is treated as an
// external debit: the sender is debited, the recipient side stays empty, and
// the row self-references.
func (s *TransactionService) ExecuteTransferByAccountNumber(ctx context.Context,
	fromNumber, toNumber string, amount decimal.Decimal, description string) (*models.TransactionLog, error) {

	fromNumber = strings.TrimSpace(fromNumber)
	toNumber = strings.TrimSpace(toNumber)
	slog.Info("executing transfer by account number", "from", fromNumber, "to", toNumber, "amount", amount)

	if fromNumber == "" || toNumber == "" {
		return nil, models.NewDomainError(models.CodeInvalidArgument, "account number cannot be empty")
	}
	if strings.EqualFold(fromNumber, toNumber) {
		return nil, models.NewDomainError(models.CodeSelfTransfer, "self-transfer is not allowed")
	}
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if err := s.ensureSender(ctx, fromNumber); err != nil {
		return nil, err
	}

	var (
		entry   *models.TransactionLog
		mutErr  error
		failRow *models.TransactionLog
	)
	txErr := s.store.WithTx(ctx, func(r repo.Repositories) error {
		from, err := r.Accounts.FindByAccountNumber(ctx, fromNumber)
		if err != nil {
			return err
		}

		to, err := r.Accounts.FindByAccountNumber(ctx, toNumber)
		switch {
		case err == nil:
			entry, err = s.internalTransfer(ctx, r, from, to, amount, description, toNumber)
		case models.IsCode(err, models.CodeAccountNotFound):
			entry, err = s.externalDebit(ctx, r, from, amount, description, toNumber)
		default:
			return err
		}
		if err != nil {
			if isMutationFailure(err) {
				mutErr = err
				failRow = failedCopy(entry, err)
			}
			return err
		}
		return nil
	})

	if txErr != nil {
		return nil, s.afterFailedTransfer(ctx, txErr, mutErr, failRow, "")
	}

	metrics.TransactionsTotal.WithLabelValues(string(entry.Type)).Inc()
	return entry, nil
}

// ensureSender guarantees a ledger account exists for fromNumber,
// materializing one from bank details when the number is known to the bank.
// Provisioning commits as its own unit, before the transfer transaction, so
// a failed transfer cannot unwind the account out from under its FAILED
// audit row.
func (s *TransactionService) ensureSender(ctx context.Context, fromNumber string) error {
	repos := s.store.Repos()

	_, err := repos.Accounts.FindByAccountNumber(ctx, fromNumber)
	if err == nil {
		return nil
	}
	if !models.IsCode(err, models.CodeAccountNotFound) {
		return err
	}

	details, derr := repos.BankDetails.FindByAccountNumber(ctx, fromNumber)
	if models.IsCode(derr, models.CodeBankDetailsNotFound) {
		return models.NewDomainError(models.CodeAccountNotFound,
			"sender account not found with number %s", fromNumber)
	}
	if derr != nil {
		return derr
	}

	acct := models.NewAccount(fromNumber, details.UserName, DefaultProvisionBalance)
	if err := repos.Accounts.Create(ctx, acct); err != nil {
		// a concurrent transfer may have provisioned this number first
		if models.IsCode(err, models.CodeDuplicateAccount) {
			return nil
		}
		return err
	}
	slog.Info("auto-provisioned account", "number", fromNumber, "holder", details.UserName)
	return nil
}

func (s *TransactionService) internalTransfer(ctx context.Context, r repo.Repositories,
	from, to *models.Account, amount decimal.Decimal, description, toNumber string) (*models.TransactionLog, error) {

	if description == "" {
		description = "Transfer to " + toNumber
	}
	entry := &models.TransactionLog{
		FromAccountID:     from.ID,
		ToAccountID:       to.ID,
		Amount:            amount,
		Type:              models.TxnTransfer,
		Status:            models.TxnPending,
		Description:       description,
		FromBalanceBefore: models.Snapshot(from.Balance),
		ToBalanceBefore:   models.Snapshot(to.Balance),
	}
	if err := r.TransactionLogs.Create(ctx, entry); err != nil {
		return entry, err
	}
	if err := s.mutate(ctx, r, from, to, amount); err != nil {
		return entry, err
	}
	entry.FromBalanceAfter = models.Snapshot(from.Balance)
	entry.ToBalanceAfter = models.Snapshot(to.Balance)
	entry.Status = models.TxnSuccess
	return entry, r.TransactionLogs.Update(ctx, entry)
}

func (s *TransactionService) externalDebit(ctx context.Context, r repo.Repositories,
	from *models.Account, amount decimal.Decimal, description, toNumber string) (*models.TransactionLog, error) {

	if !accountnum.IsValid(toNumber) {
		return nil, models.NewDomainError(models.CodeInvalidAccountNumber,
			"recipient account number must be 12 digits for external transfers")
	}
	if description == "" {
		description = "External payment to " + toNumber
	}
	// Money leaves the tracked ledger with no matching credit. Flagged
	// loudly so reconciliation can pick these rows up downstream.
	slog.Warn("processing external debit", "from", from.AccountNumber, "to", toNumber, "amount", amount)

	entry := &models.TransactionLog{
		FromAccountID:     from.ID,
		ToAccountID:       from.ID, // self-reference, recipient is outside the ledger
		Amount:            amount,
		Type:              models.TxnDebit,
		Status:            models.TxnPending,
		Description:       description,
		FromBalanceBefore: models.Snapshot(from.Balance),
	}
	if err := r.TransactionLogs.Create(ctx, entry); err != nil {
		return entry, err
	}
	if err := from.Debit(amount); err != nil {
		return entry, err
	}
	if err := r.Accounts.Save(ctx, from); err != nil {
		return entry, err
	}
	entry.FromBalanceAfter = models.Snapshot(from.Balance)
	entry.Status = models.TxnSuccess
	return entry, r.TransactionLogs.Update(ctx, entry)
}

// mutate performs debit-then-credit and saves both rows. Debit runs first:
// if it fails the credit never happens.
func (s *TransactionService) mutate(ctx context.Context, r repo.Repositories,
	from, to *models.Account, amount decimal.Decimal) error {

	if err := from.Debit(amount); err != nil {
		return err
	}
	if err := to.Credit(amount); err != nil {
		return err
	}
	if err := r.Accounts.Save(ctx, from); err != nil {
		return err
	}
	return r.Accounts.Save(ctx, to)
}

// afterFailedTransfer turns a rolled-back transfer into its caller-visible
// error, writing the FAILED audit row (as its own small commit) when the
// failure happened during mutation.
func (s *TransactionService) afterFailedTransfer(ctx context.Context, txErr, mutErr error,
	failRow *models.TransactionLog, idempotencyKey string) error {

	if txErr == repo.ErrIdempotencyConflict {
		// Lost the insert race; resolve the winning row for the caller.
		existing, err := s.store.Repos().TransactionLogs.FindByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return models.NewDomainError(models.CodeDuplicateTransaction,
				"transaction with this idempotency key already exists")
		}
		return models.NewDuplicateTransaction(existing.ID)
	}

	if mutErr != nil && failRow != nil {
		if err := s.store.Repos().TransactionLogs.Create(ctx, failRow); err != nil {
			slog.Error("recording failed transfer", "err", err)
		}
		metrics.TransactionsFailed.Inc()
		slog.Error("transfer failed", "reason", mutErr.Error())
	}
	return txErr
}

// failedCopy builds the immutable FAILED audit row for a mutation failure:
// before-snapshots only, non-null failure reason, never an after-snapshot.
func failedCopy(entry *models.TransactionLog, cause error) *models.TransactionLog {
	if entry == nil {
		return nil
	}
	return &models.TransactionLog{
		FromAccountID:     entry.FromAccountID,
		ToAccountID:       entry.ToAccountID,
		Amount:            entry.Amount,
		Type:              entry.Type,
		Status:            models.TxnFailed,
		Description:       entry.Description,
		FromBalanceBefore: entry.FromBalanceBefore,
		ToBalanceBefore:   entry.ToBalanceBefore,
		IdempotencyKey:    entry.IdempotencyKey,
		FailureReason:     models.StrPtr(cause.Error()),
	}
}

// isMutationFailure reports whether err is a business failure raised while
// mutating balances, as opposed to a retryable store conflict.
func isMutationFailure(err error) bool {
	switch models.CodeOf(err) {
	case models.CodeInsufficientBalance, models.CodeInactiveAccount, models.CodeInvalidAmount:
		return true
	}
	return false
}

func senderNotFound(err error, id int64) error {
	if models.IsCode(err, models.CodeAccountNotFound) {
		return models.NewDomainError(models.CodeAccountNotFound, "sender account not found with id %d", id)
	}
	return err
}

func receiverNotFound(err error, id int64) error {
	if models.IsCode(err, models.CodeAccountNotFound) {
		return models.NewDomainError(models.CodeAccountNotFound, "receiver account not found with id %d", id)
	}
	return err
}

// ----------------- Queries -----------------

func (s *TransactionService) GetByID(ctx context.Context, id int64) (*models.TransactionLog, error) {
	return s.store.Repos().TransactionLogs.FindByID(ctx, id)
}

func (s *TransactionService) ListAll(ctx context.Context) ([]models.TransactionLog, error) {
	return s.store.Repos().TransactionLogs.ListAll(ctx)
}

func (s *TransactionService) ListByStatus(ctx context.Context, status models.TransactionStatus) ([]models.TransactionLog, error) {
	return s.store.Repos().TransactionLogs.ListByStatus(ctx, status)
}

func (s *TransactionService) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.TransactionLog, error) {
	return s.store.Repos().TransactionLogs.ListByDateRange(ctx, from, to)
}

// ListByAccount returns every ledger row touching the account, sent or
// received, newest first.
func (s *TransactionService) ListByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error) {
	if _, err := s.store.Repos().Accounts.FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Repos().TransactionLogs.ListByAccount(ctx, accountID)
}

func (s *TransactionService) ListFailedByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error) {
	return s.store.Repos().TransactionLogs.ListFailedByAccount(ctx, accountID)
}
