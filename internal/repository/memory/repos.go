package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/acmebank/mts-backend/internal/repository"
	"github.com/google/uuid"
)

type accountsRepo struct{ v view }

func (r *accountsRepo) FindByID(_ context.Context, id int64) (*models.Account, error) {
	var out *models.Account
	err := r.v.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return models.NewDomainError(models.CodeAccountNotFound, "account not found")
		}
		cp := *a
		out = &cp
		return nil
	})
	return out, err
}

func (r *accountsRepo) FindByAccountNumber(_ context.Context, number string) (*models.Account, error) {
	return r.findWhere(func(a *models.Account) bool { return a.AccountNumber == number })
}

func (r *accountsRepo) FindByHolderName(_ context.Context, name string) (*models.Account, error) {
	return r.findWhere(func(a *models.Account) bool {
		return strings.EqualFold(a.HolderName, name)
	})
}

func (r *accountsRepo) findWhere(match func(*models.Account) bool) (*models.Account, error) {
	var out *models.Account
	err := r.v.do(func(st *state) error {
		for _, a := range st.accounts {
			if match(a) {
				cp := *a
				out = &cp
				return nil
			}
		}
		return models.NewDomainError(models.CodeAccountNotFound, "account not found")
	})
	return out, err
}

func (r *accountsRepo) ExistsByAccountNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByAccountNumber(ctx, number)
	if models.IsCode(err, models.CodeAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *accountsRepo) ExistsByHolderName(ctx context.Context, name string) (bool, error) {
	_, err := r.FindByHolderName(ctx, name)
	if models.IsCode(err, models.CodeAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *accountsRepo) Create(_ context.Context, a *models.Account) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.accounts {
			if other.AccountNumber == a.AccountNumber || strings.EqualFold(other.HolderName, a.HolderName) {
				return models.NewDomainError(models.CodeDuplicateAccount,
					"account already exists for holder %q or number %s", a.HolderName, a.AccountNumber)
			}
		}
		a.ID = st.nextAccount
		st.nextAccount++
		a.Version = 1
		cp := *a
		st.accounts[a.ID] = &cp
		return nil
	})
}

func (r *accountsRepo) Save(_ context.Context, a *models.Account) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.accounts[a.ID]
		if !ok {
			return models.NewDomainError(models.CodeAccountNotFound, "account not found")
		}
		if cur.Version != a.Version {
			return models.NewDomainError(models.CodeConcurrentModification,
				"account %d was modified concurrently, retry the operation", a.ID)
		}
		a.Version++
		cp := *a
		st.accounts[a.ID] = &cp
		return nil
	})
}

type transactionLogsRepo struct{ v view }

func (r *transactionLogsRepo) Create(_ context.Context, t *models.TransactionLog) error {
	return r.v.do(func(st *state) error {
		if t.IdempotencyKey != nil {
			for _, other := range st.logs {
				if other.IdempotencyKey != nil && *other.IdempotencyKey == *t.IdempotencyKey {
					return repository.ErrIdempotencyConflict
				}
			}
		}
		if t.TransactionDate.IsZero() {
			t.TransactionDate = time.Now()
		}
		t.ID = st.nextLog
		st.nextLog++
		cp := *t
		st.logs[t.ID] = &cp
		return nil
	})
}

func (r *transactionLogsRepo) Update(_ context.Context, t *models.TransactionLog) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.logs[t.ID]; !ok {
			return models.NewDomainError(models.CodeTransactionNotFound, "transaction not found")
		}
		cp := *t
		st.logs[t.ID] = &cp
		return nil
	})
}

func (r *transactionLogsRepo) FindByID(_ context.Context, id int64) (*models.TransactionLog, error) {
	var out *models.TransactionLog
	err := r.v.do(func(st *state) error {
		t, ok := st.logs[id]
		if !ok {
			return models.NewDomainError(models.CodeTransactionNotFound, "transaction not found")
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *transactionLogsRepo) FindByIdempotencyKey(_ context.Context, key string) (*models.TransactionLog, error) {
	var out *models.TransactionLog
	err := r.v.do(func(st *state) error {
		for _, t := range st.logs {
			if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
				cp := *t
				out = &cp
				return nil
			}
		}
		return models.NewDomainError(models.CodeTransactionNotFound, "transaction not found")
	})
	return out, err
}

func (r *transactionLogsRepo) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	_, err := r.FindByIdempotencyKey(ctx, key)
	if models.IsCode(err, models.CodeTransactionNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *transactionLogsRepo) ListByAccount(_ context.Context, accountID int64) ([]models.TransactionLog, error) {
	return r.listWhere(func(t *models.TransactionLog) bool {
		return t.FromAccountID == accountID || t.ToAccountID == accountID
	})
}

func (r *transactionLogsRepo) ListFailedByAccount(_ context.Context, accountID int64) ([]models.TransactionLog, error) {
	return r.listWhere(func(t *models.TransactionLog) bool {
		return t.Status == models.TxnFailed &&
			(t.FromAccountID == accountID || t.ToAccountID == accountID)
	})
}

func (r *transactionLogsRepo) ListByStatus(_ context.Context, status models.TransactionStatus) ([]models.TransactionLog, error) {
	return r.listWhere(func(t *models.TransactionLog) bool { return t.Status == status })
}

func (r *transactionLogsRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]models.TransactionLog, error) {
	return r.listWhere(func(t *models.TransactionLog) bool {
		return !t.TransactionDate.Before(from) && !t.TransactionDate.After(to)
	})
}

func (r *transactionLogsRepo) ListAfterID(_ context.Context, watermark int64, limit int) ([]models.TransactionLog, error) {
	out, err := r.listWhere(func(t *models.TransactionLog) bool {
		return t.ID > watermark && t.IsTerminal()
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *transactionLogsRepo) ListAll(_ context.Context) ([]models.TransactionLog, error) {
	return r.listWhere(func(*models.TransactionLog) bool { return true })
}

func (r *transactionLogsRepo) listWhere(match func(*models.TransactionLog) bool) ([]models.TransactionLog, error) {
	var out []models.TransactionLog
	err := r.v.do(func(st *state) error {
		for _, t := range st.logs {
			if match(t) {
				out = append(out, *t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})
	return out, nil
}

type bankDetailsRepo struct{ v view }

func (r *bankDetailsRepo) FindByID(_ context.Context, id int64) (*models.BankDetails, error) {
	var out *models.BankDetails
	err := r.v.do(func(st *state) error {
		d, ok := st.bankDetails[id]
		if !ok {
			return models.NewDomainError(models.CodeBankDetailsNotFound, "bank details not found")
		}
		cp := *d
		out = &cp
		return nil
	})
	return out, err
}

func (r *bankDetailsRepo) FindByAccountNumber(_ context.Context, number string) (*models.BankDetails, error) {
	var out *models.BankDetails
	err := r.v.do(func(st *state) error {
		for _, d := range st.bankDetails {
			if d.AccountNumber == number {
				cp := *d
				out = &cp
				return nil
			}
		}
		return models.NewDomainError(models.CodeBankDetailsNotFound, "bank details not found")
	})
	return out, err
}

func (r *bankDetailsRepo) Save(_ context.Context, d *models.BankDetails) error {
	return r.v.do(func(st *state) error {
		if d.ID == 0 {
			d.ID = st.nextBank
			st.nextBank++
			d.CreatedAt = time.Now()
		}
		d.LastUpdated = time.Now()
		cp := *d
		st.bankDetails[d.ID] = &cp
		return nil
	})
}

type usersRepo struct{ v view }

func (r *usersRepo) Create(_ context.Context, username, email, hash, role string) (models.User, error) {
	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	err := r.v.do(func(st *state) error {
		st.users[u.ID] = u
		return nil
	})
	return u, err
}

func (r *usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	var out models.User
	err := r.v.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return models.NewDomainError(models.CodeAccountNotFound, "user not found")
		}
		out = u
		return nil
	})
	return out, err
}

func (r *usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	var out models.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return models.NewDomainError(models.CodeAccountNotFound, "user not found")
	})
	return out, err
}
