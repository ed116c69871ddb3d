package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/acmebank/mts-backend/internal/accountnum"
	"github.com/acmebank/mts-backend/internal/metrics"
	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
	"github.com/shopspring/decimal"
)

const maxNumberAttempts = 10

// MinimumInitialBalance is the smallest opening balance accepted at account
// creation.
var MinimumInitialBalance = decimal.RequireFromString("100.00")

// AccountService owns account lifecycle and single-account money operations.
// Cross-account movement belongs to the TransactionService.
type AccountService struct {
	store repo.Store
}

func NewAccountService(store repo.Store) *AccountService { return &AccountService{store: store} }

// CreateAccount opens an ACTIVE account for holderName. One account per
// holder, compared case-insensitively; the opening balance must lie within
// [100.00, 1,000,000].
func (s *AccountService) CreateAccount(ctx context.Context, holderName string, initialBalance decimal.Decimal) (*models.Account, error) {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return nil, models.NewDomainError(models.CodeInvalidArgument, "account holder name cannot be empty")
	}

	repos := s.store.Repos()
	exists, err := repos.Accounts.ExistsByHolderName(ctx, holderName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewDomainError(models.CodeDuplicateAccount,
			"account already exists for holder %q: a person can only have one account", holderName)
	}

	if initialBalance.LessThan(MinimumInitialBalance) {
		return nil, models.NewDomainError(models.CodeInvalidAmount,
			"minimum initial balance required: %s, provided: %s", MinimumInitialBalance, initialBalance)
	}
	if initialBalance.GreaterThan(models.MaxTransactionAmount) {
		return nil, models.NewDomainError(models.CodeInvalidAmount,
			"initial deposit cannot exceed %s", models.MaxTransactionAmount)
	}

	number, err := s.uniqueAccountNumber(ctx, repos.Accounts)
	if err != nil {
		return nil, err
	}

	acct := models.NewAccount(number, holderName, initialBalance)
	if err := repos.Accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	slog.Info("account created", "id", acct.ID, "number", acct.AccountNumber, "holder", holderName)
	return acct, nil
}

// uniqueAccountNumber rolls candidate numbers, re-rolling on collision.
func (s *AccountService) uniqueAccountNumber(ctx context.Context, accounts repo.Accounts) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := accountnum.Generate()
		exists, err := accounts.ExistsByAccountNumber(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", models.NewDomainError(models.CodeNumberSpaceExhausted,
		"unable to generate unique account number after %d attempts", maxNumberAttempts)
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.store.Repos().Accounts.FindByID(ctx, id)
}

func (s *AccountService) GetByAccountNumber(ctx context.Context, number string) (*models.Account, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, models.NewDomainError(models.CodeInvalidArgument, "account number cannot be empty")
	}
	return s.store.Repos().Accounts.FindByAccountNumber(ctx, number)
}

func (s *AccountService) GetByHolderName(ctx context.Context, name string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewDomainError(models.CodeInvalidArgument, "holder name cannot be empty")
	}
	return s.store.Repos().Accounts.FindByHolderName(ctx, name)
}

// Credit deposits into one account and appends a self-referencing CREDIT
// ledger row, atomically.
func (s *AccountService) Credit(ctx context.Context, id int64, amount decimal.Decimal, description string) (*models.Account, error) {
	var acct *models.Account
	err := s.store.WithTx(ctx, func(r repo.Repositories) error {
		a, err := r.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		before := a.Balance
		if err := a.Credit(amount); err != nil {
			return err
		}
		if err := r.Accounts.Save(ctx, a); err != nil {
			return err
		}
		if description == "" {
			description = "Deposit to account " + a.AccountNumber
		}
		entry := &models.TransactionLog{
			FromAccountID:   a.ID,
			ToAccountID:     a.ID,
			Amount:          amount,
			Type:            models.TxnCredit,
			Status:          models.TxnSuccess,
			Description:     description,
			ToBalanceBefore: models.Snapshot(before),
			ToBalanceAfter:  models.Snapshot(a.Balance),
		}
		if err := r.TransactionLogs.Create(ctx, entry); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(models.TxnCredit)).Inc()
	return acct, nil
}

// Debit withdraws from one account and appends a self-referencing DEBIT
// ledger row, atomically.
func (s *AccountService) Debit(ctx context.Context, id int64, amount decimal.Decimal, description string) (*models.Account, error) {
	var acct *models.Account
	err := s.store.WithTx(ctx, func(r repo.Repositories) error {
		a, err := r.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		before := a.Balance
		if err := a.Debit(amount); err != nil {
			return err
		}
		if err := r.Accounts.Save(ctx, a); err != nil {
			return err
		}
		if description == "" {
			description = "Withdrawal from account " + a.AccountNumber
		}
		entry := &models.TransactionLog{
			FromAccountID:     a.ID,
			ToAccountID:       a.ID,
			Amount:            amount,
			Type:              models.TxnDebit,
			Status:            models.TxnSuccess,
			Description:       description,
			FromBalanceBefore: models.Snapshot(before),
			FromBalanceAfter:  models.Snapshot(a.Balance),
		}
		if err := r.TransactionLogs.Create(ctx, entry); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(models.TxnDebit)).Inc()
	return acct, nil
}

// Lock blocks all transactions on the account.
func (s *AccountService) Lock(ctx context.Context, id int64) (*models.Account, error) {
	return s.mutateStatus(ctx, id, func(a *models.Account) error {
		a.Lock()
		return nil
	})
}

// Unlock reactivates a locked account.
func (s *AccountService) Unlock(ctx context.Context, id int64) (*models.Account, error) {
	return s.mutateStatus(ctx, id, (*models.Account).Activate)
}

// Close permanently closes a zero-balance account.
func (s *AccountService) Close(ctx context.Context, id int64) (*models.Account, error) {
	return s.mutateStatus(ctx, id, (*models.Account).Close)
}

func (s *AccountService) mutateStatus(ctx context.Context, id int64, op func(*models.Account) error) (*models.Account, error) {
	var acct *models.Account
	err := s.store.WithTx(ctx, func(r repo.Repositories) error {
		a, err := r.Accounts.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := op(a); err != nil {
			return err
		}
		if err := r.Accounts.Save(ctx, a); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}
