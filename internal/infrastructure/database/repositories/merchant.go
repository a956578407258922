package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/postgresql"
	"github.com/shopspring/decimal"
)

type MerchantRepositoryImpl struct {
	db postgresql.Client
}

func NewMerchantRepositoryImpl(db postgresql.Client) repositories.MerchantRepository {
	return &MerchantRepositoryImpl{
		db: db,
	}
}

func (r *MerchantRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Merchant, error) {
	m := &models.Merchant{}
	err := r.db.QueryRow(
		ctx,
		"SELECT id, email, balance, token, callback_url, created_at FROM merchants WHERE id = $1",
		id,
	).Scan(&m.ID, &m.Email, &m.Balance, &m.Token, &m.CallbackURL, &m.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("merchant")
		}
		return nil, fmt.Errorf("get merchant: %w", err)
	}

	return m, nil
}

func (r *MerchantRepositoryImpl) Create(ctx context.Context, m *models.Merchant) error {
	err := r.db.QueryRow(
		ctx,
		"INSERT INTO merchants (id, email, token, callback_url) VALUES ($1, $2, $3, $4) RETURNING balance, created_at",
		m.ID, m.Email, m.Token, m.CallbackURL,
	).Scan(&m.Balance, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == repositories.UniqueViolationError {
			return apperrors.NewAlreadyExistsError("merchant")
		}
		return fmt.Errorf("create merchant: %w", err)
	}
	return nil
}

type RateRepositoryImpl struct {
	db postgresql.Client
}

func NewRateRepositoryImpl(db postgresql.Client) repositories.RateRepository {
	return &RateRepositoryImpl{db: db}
}

// GetByCurrency returns the GRIN price in currency. Rates are NUMERIC and decoded
// through the shopspring decimal codec registered on every connection.
func (r *RateRepositoryImpl) GetByCurrency(ctx context.Context, currency models.Currency) (*models.Rate, error) {
	rate := &models.Rate{}
	err := r.db.QueryRow(ctx, "SELECT id, rate, updated_at FROM rates WHERE id = $1", string(currency)).
		Scan(&rate.ID, &rate.Rate, &rate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("rate")
		}
		return nil, fmt.Errorf("get rate: %w", err)
	}
	return rate, nil
}

const upsertRate = `
INSERT INTO rates (id, rate, updated_at) VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at
RETURNING id, rate, updated_at`

func (r *RateRepositoryImpl) Upsert(ctx context.Context, currency models.Currency, value decimal.Decimal) (*models.Rate, error) {
	rate := &models.Rate{}
	err := r.db.QueryRow(ctx, upsertRate, string(currency), value).Scan(&rate.ID, &rate.Rate, &rate.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert rate: %w", err)
	}
	return rate, nil
}
