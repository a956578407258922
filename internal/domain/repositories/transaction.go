package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
)

const (
	SerializationError   = "40001"
	UniqueViolationError = "23505"
	ForeignKeyViolation  = "23503"
)

// TransactionRepository persists transactions. Every write that changes the
// status is a compare-and-set on the expected current status; when no row
// matches, the write fails with a WrongTransactionStatusError and changes nothing.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetByIDAndType(ctx context.Context, id uuid.UUID, txType models.TransactionType) (*models.Transaction, error)
	ListByStatus(ctx context.Context, txType models.TransactionType, status models.TransactionStatus) ([]*models.Transaction, error)
	// ListByCommits locks the matching rows until the surrounding unit of work ends.
	ListByCommits(ctx context.Context, commits []string) ([]*models.Transaction, error)
	ListUnreportedByStatus(ctx context.Context, status models.TransactionStatus, maxAttempts int, now time.Time) ([]*models.Transaction, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus) (*models.Transaction, error)
	UpdateWalletFields(ctx context.Context, id uuid.UUID, fields models.WalletFields) (*models.Transaction, error)
	UpdateHeightAndStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, height int64) (*models.Transaction, error)
	// ConfirmAndCredit moves an in_chain payment to confirmed and adds its
	// grin_amount to the merchant balance in one database transaction.
	ConfirmAndCredit(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// RejectExpired rejects every transaction of txType in status created before the cutoff.
	RejectExpired(ctx context.Context, txType models.TransactionType, status models.TransactionStatus, createdBefore time.Time) (int64, error)

	// MarkReported sets reported on an unreported transaction still in status.
	MarkReported(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error
	RecordReportAttempt(ctx context.Context, id uuid.UUID, next time.Time) (*models.Transaction, error)
}

// ChainHeightRepository stores the last reconciled block height.
type ChainHeightRepository interface {
	Get(ctx context.Context) (int64, error)
	// Advance stores max(current, height) and returns the stored value.
	Advance(ctx context.Context, height int64) (int64, error)
}

// Store is the unit of work. Repositories handed to fn share one database
// transaction which commits when fn returns nil and rolls back otherwise.
type Store interface {
	Transactions() TransactionRepository
	ChainHeight() ChainHeightRepository
	InTx(ctx context.Context, fn func(Store) error) error
}
