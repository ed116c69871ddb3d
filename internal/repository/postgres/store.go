// Package postgres implements the repository contracts over pgx.
package postgres

import (
	"context"

	"github.com/acmebank/mts-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the querier shared by *pgxpool.Pool and pgx.Tx, so the same repo
// code runs inside and outside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Repos() repository.Repositories { return newRepositories(s.pool) }

// WithTx runs fn against repositories bound to one serializable pgx
// transaction. fn returning nil commits; any error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(newRepositories(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func newRepositories(db DB) repository.Repositories {
	return repository.Repositories{
		Accounts:        &accountsRepo{db},
		TransactionLogs: &transactionLogsRepo{db},
		BankDetails:     &bankDetailsRepo{db},
		Users:           &usersRepo{db},
	}
}
