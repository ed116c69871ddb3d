package repository

import (
	"context"
	"errors"
	"time"

	"github.com/acmebank/mts-backend/internal/models"
)

// ErrIdempotencyConflict is returned by TransactionLogs.Create when the
// unique index on the idempotency key rejects the row. The store's index is
// the authoritative arbiter between concurrent callers sharing a key; the
// caller resolves the winning row afterwards.
var ErrIdempotencyConflict = errors.New("idempotency key already used")

type Accounts interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByAccountNumber(ctx context.Context, number string) (*models.Account, error)
	// FindByHolderName matches case-insensitively.
	FindByHolderName(ctx context.Context, name string) (*models.Account, error)
	ExistsByAccountNumber(ctx context.Context, number string) (bool, error)
	// ExistsByHolderName matches case-insensitively.
	ExistsByHolderName(ctx context.Context, name string) (bool, error)
	// Create persists a new account and assigns ID and Version.
	Create(ctx context.Context, a *models.Account) error
	// Save persists a loaded account using optimistic concurrency: if the
	// stored version differs from a.Version the save fails with a
	// concurrent_modification domain error; on success the version
	// increments.
	Save(ctx context.Context, a *models.Account) error
}

type TransactionLogs interface {
	// Create appends a ledger row and assigns its monotonic ID. A duplicate
	// idempotency key fails with ErrIdempotencyConflict.
	Create(ctx context.Context, t *models.TransactionLog) error
	// Update promotes a PENDING row to its terminal status within the
	// transaction that created it. Terminal rows are immutable and must
	// never be passed here again.
	Update(ctx context.Context, t *models.TransactionLog) error
	FindByID(ctx context.Context, id int64) (*models.TransactionLog, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.TransactionLog, error)
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error)
	ListFailedByAccount(ctx context.Context, accountID int64) ([]models.TransactionLog, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus) ([]models.TransactionLog, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]models.TransactionLog, error)
	// ListAfterID returns up to limit terminal rows with ID > watermark in
	// ascending ID order, for warehouse readers.
	ListAfterID(ctx context.Context, watermark int64, limit int) ([]models.TransactionLog, error)
	ListAll(ctx context.Context) ([]models.TransactionLog, error)
}

type BankDetails interface {
	FindByID(ctx context.Context, id int64) (*models.BankDetails, error)
	FindByAccountNumber(ctx context.Context, number string) (*models.BankDetails, error)
	Save(ctx context.Context, d *models.BankDetails) error
}

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

// Repositories bundles the stores handed to services. A Store yields one
// bound to auto-commit access and, via WithTx, one bound to a single
// transaction.
type Repositories struct {
	Accounts        Accounts
	TransactionLogs TransactionLogs
	BankDetails     BankDetails
	Users           Users
}

// Store is the unit-of-work boundary. WithTx runs fn against repositories
// scoped to one store transaction: fn returning nil commits every write as
// one atomic unit, any error rolls all of them back.
type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn func(Repositories) error) error
}
