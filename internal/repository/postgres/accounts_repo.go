package postgres

import (
	"context"
	"errors"

	"github.com/acmebank/mts-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type accountsRepo struct{ db DB }

const accountCols = `id, account_number, holder_name, balance, status, version, created_at, last_updated`

func (r *accountsRepo) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=$1`, id)
}

func (r *accountsRepo) FindByAccountNumber(ctx context.Context, number string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountCols+` FROM accounts WHERE account_number=$1`, number)
}

func (r *accountsRepo) FindByHolderName(ctx context.Context, name string) (*models.Account, error) {
	return r.findOne(ctx, `SELECT `+accountCols+` FROM accounts WHERE lower(holder_name)=lower($1)`, name)
}

func (r *accountsRepo) findOne(ctx context.Context, q string, arg any) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRow(ctx, q, arg).Scan(
		&a.ID, &a.AccountNumber, &a.HolderName, &a.Balance,
		&a.Status, &a.Version, &a.CreatedAt, &a.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NewDomainError(models.CodeAccountNotFound, "account not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountsRepo) ExistsByAccountNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number=$1)`, number,
	).Scan(&exists)
	return exists, err
}

func (r *accountsRepo) ExistsByHolderName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(holder_name)=lower($1))`, name,
	).Scan(&exists)
	return exists, err
}

func (r *accountsRepo) Create(ctx context.Context, a *models.Account) error {
	err := r.db.QueryRow(ctx, `
INSERT INTO accounts (account_number, holder_name, balance, status, version, created_at, last_updated)
VALUES ($1,$2,$3,$4,1,now(),now())
RETURNING id, version, created_at, last_updated`,
		a.AccountNumber, a.HolderName, a.Balance, a.Status,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.LastUpdated)
	if isUniqueViolation(err) {
		return models.NewDomainError(models.CodeDuplicateAccount,
			"account already exists for holder %q or number %s", a.HolderName, a.AccountNumber)
	}
	return err
}

// Save writes back a loaded account. The WHERE clause on version is the
// optimistic-concurrency check: zero rows updated means someone else saved
// the row since we read it.
func (r *accountsRepo) Save(ctx context.Context, a *models.Account) error {
	tag, err := r.db.Exec(ctx, `
UPDATE accounts
   SET balance=$3, status=$4, version=version+1, last_updated=now()
 WHERE id=$1 AND version=$2`,
		a.ID, a.Version, a.Balance, a.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NewDomainError(models.CodeConcurrentModification,
			"account %d was modified concurrently, retry the operation", a.ID)
	}
	a.Version++
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
