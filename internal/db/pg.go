// Package db owns the pgx pool and the embedded schema migrations backing
// the account and ledger stores.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxConns       = 10
	connectTimeout = 5 * time.Second
)

// NewPool opens a bounded pgx connection pool against url. The cap keeps a
// burst of serializable transfer transactions from exhausting postgres
// connection slots.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = maxConns
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return pgxpool.NewWithConfig(ctx, cfg)
}
