package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/mufasadev/grinpay/pkg/postgresql"
	"github.com/rs/zerolog"
)

type TransactionRepositoryImpl struct {
	db     postgresql.Client
	logger *zerolog.Logger
}

// NewTransactionRepositoryImpl creates new instance of TransactionRepositoryImpl.
// db is either the pool or an open transaction.
func NewTransactionRepositoryImpl(db postgresql.Client) repositories.TransactionRepository {
	return &TransactionRepositoryImpl{
		db:     db,
		logger: log.Component("transaction_repository"),
	}
}

const transactionColumns = `id, external_id, merchant_id, grin_amount, amount, status, confirmations,
  email, message, redirect_url, transaction_type, created_at, updated_at,
  reported, report_attempts, next_report_attempt,
  wallet_tx_id, wallet_tx_slate_id, slate_messages, real_transfer_fee, height, commit`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var amount []byte
	var status, txType string
	err := row.Scan(
		&tx.ID, &tx.ExternalID, &tx.MerchantID, &tx.GrinAmount, &amount, &status, &tx.Confirmations,
		&tx.Email, &tx.Message, &tx.RedirectURL, &txType, &tx.CreatedAt, &tx.UpdatedAt,
		&tx.Reported, &tx.ReportAttempts, &tx.NextReportAttempt,
		&tx.WalletTxID, &tx.WalletTxSlateID, &tx.SlateMessages, &tx.RealTransferFee, &tx.Height, &tx.Commit,
	)
	if err != nil {
		return nil, err
	}
	if err = tx.Amount.Scan(amount); err != nil {
		return nil, fmt.Errorf("scan amount: %w", err)
	}
	tx.Status = models.TransactionStatus(status)
	tx.TransactionType = models.TransactionType(txType)
	return tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()
	result := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

const insertTransaction = `
INSERT INTO transactions (id, external_id, merchant_id, grin_amount, amount, status, confirmations,
  email, message, redirect_url, transaction_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $12)`

// Create inserts a new transaction. CreatedAt and UpdatedAt are taken from tx.
func (r *TransactionRepositoryImpl) Create(ctx context.Context, tx *models.Transaction) error {
	amount, err := tx.Amount.Value()
	if err != nil {
		return fmt.Errorf("encode amount: %w", err)
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.UpdatedAt = tx.CreatedAt

	_, err = r.db.Exec(ctx, insertTransaction,
		tx.ID, tx.ExternalID, tx.MerchantID, tx.GrinAmount, amount, string(tx.Status), tx.Confirmations,
		tx.Email, tx.Message, tx.RedirectURL, string(tx.TransactionType), tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.SQLState() {
			case repositories.UniqueViolationError:
				return apperrors.NewAlreadyExistsError("transaction")
			case repositories.ForeignKeyViolation:
				return apperrors.NewNotFoundError("merchant")
			}
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID returns transaction by id.
func (r *TransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	return r.one(row, "get transaction")
}

func (r *TransactionRepositoryImpl) GetByIDAndType(ctx context.Context, id uuid.UUID, txType models.TransactionType) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 AND transaction_type = $2",
		id, string(txType),
	)
	return r.one(row, "get transaction")
}

func (r *TransactionRepositoryImpl) ListByStatus(ctx context.Context, txType models.TransactionType, status models.TransactionStatus) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE transaction_type = $1 AND status = $2 ORDER BY created_at",
		string(txType), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepositoryImpl) ListByCommits(ctx context.Context, commits []string) ([]*models.Transaction, error) {
	if len(commits) == 0 {
		return []*models.Transaction{}, nil
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE commit = ANY($1) ORDER BY id FOR UPDATE",
		commits,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by commits: %w", err)
	}
	return collectTransactions(rows)
}

const listUnreported = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE reported = FALSE
  AND status = $1
  AND transaction_type = 'payment'
  AND report_attempts < $2
  AND (next_report_attempt IS NULL OR next_report_attempt <= $3)
ORDER BY updated_at`

func (r *TransactionRepositoryImpl) ListUnreportedByStatus(ctx context.Context, status models.TransactionStatus, maxAttempts int, now time.Time) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx, listUnreported, string(status), maxAttempts, now)
	if err != nil {
		return nil, fmt.Errorf("list unreported transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (r *TransactionRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		"UPDATE transactions SET status = $3, updated_at = now() WHERE id = $1 AND status = $2 RETURNING "+transactionColumns,
		id, string(from), string(to),
	)
	return r.guarded(ctx, row, id, "update status")
}

const updateWalletFields = `
UPDATE transactions
SET status = 'pending',
    wallet_tx_id = $2,
    wallet_tx_slate_id = $3,
    slate_messages = $4,
    real_transfer_fee = $5,
    commit = $6,
    updated_at = now()
WHERE id = $1 AND status = 'new'
RETURNING ` + transactionColumns

// UpdateWalletFields stores the wallet linkage and moves a new transaction to pending.
func (r *TransactionRepositoryImpl) UpdateWalletFields(ctx context.Context, id uuid.UUID, fields models.WalletFields) (*models.Transaction, error) {
	messages := fields.SlateMessages
	if messages == nil {
		messages = []string{}
	}
	row := r.db.QueryRow(ctx, updateWalletFields,
		id, fields.WalletTxID, fields.WalletTxSlateID, messages, fields.RealTransferFee, fields.Commit,
	)
	return r.guarded(ctx, row, id, "update wallet fields")
}

func (r *TransactionRepositoryImpl) UpdateHeightAndStatus(ctx context.Context, id uuid.UUID, from, to models.TransactionStatus, height int64) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions SET status = $3, height = $4, updated_at = now()
WHERE id = $1 AND status = $2 AND (height IS NULL OR height <= $4)
RETURNING `+transactionColumns,
		id, string(from), string(to), height,
	)
	return r.guarded(ctx, row, id, "update height")
}

const confirmAndCredit = `
WITH confirmed AS (
  UPDATE transactions
  SET status = 'confirmed', updated_at = now()
  WHERE id = $1 AND status = 'in_chain' AND transaction_type = 'payment'
  RETURNING ` + transactionColumns + `
),
credited AS (
  UPDATE merchants
  SET balance = balance + (SELECT grin_amount FROM confirmed)
  WHERE id = (SELECT merchant_id FROM confirmed)
  RETURNING id
)
SELECT ` + transactionColumns + ` FROM confirmed`

// ConfirmAndCredit confirms the payment and credits the merchant within a single statement.
func (r *TransactionRepositoryImpl) ConfirmAndCredit(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx, confirmAndCredit, id)
	return r.guarded(ctx, row, id, "confirm payment")
}

func (r *TransactionRepositoryImpl) RejectExpired(ctx context.Context, txType models.TransactionType, status models.TransactionStatus, createdBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = 'rejected', updated_at = now()
WHERE transaction_type = $1 AND status = $2 AND created_at < $3`,
		string(txType), string(status), createdBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("reject expired transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *TransactionRepositoryImpl) MarkReported(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions SET reported = TRUE
WHERE id = $1 AND status = $2 AND reported = FALSE
RETURNING `+transactionColumns,
		id, string(status),
	)
	_, err := r.guarded(ctx, row, id, "mark reported")
	return err
}

func (r *TransactionRepositoryImpl) RecordReportAttempt(ctx context.Context, id uuid.UUID, next time.Time) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions SET report_attempts = report_attempts + 1, next_report_attempt = $2
WHERE id = $1 AND reported = FALSE
RETURNING `+transactionColumns,
		id, next,
	)
	return r.guarded(ctx, row, id, "record report attempt")
}

func (r *TransactionRepositoryImpl) one(row pgx.Row, op string) (*models.Transaction, error) {
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("transaction")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tx, nil
}

// guarded scans the row returned by a conditional update. An empty result
// means the guard did not hold, which is reported as the current status.
func (r *TransactionRepositoryImpl) guarded(ctx context.Context, row pgx.Row, id uuid.UUID, op string) (*models.Transaction, error) {
	tx, err := scanTransaction(row)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var current string
	err = r.db.QueryRow(ctx, "SELECT status FROM transactions WHERE id = $1", id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("transaction")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.logger.Debug().Str("transaction_id", id.String()).Str("status", current).Msgf("%s: guard did not match", op)
	return nil, apperrors.NewWrongTransactionStatusError(current)
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == repositories.SerializationError
}
