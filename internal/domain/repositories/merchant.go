package repositories

import (
	"context"

	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/shopspring/decimal"
)

type MerchantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Merchant, error)
	Create(ctx context.Context, merchant *models.Merchant) error
}

type RateRepository interface {
	GetByCurrency(ctx context.Context, currency models.Currency) (*models.Rate, error)
	Upsert(ctx context.Context, currency models.Currency, rate decimal.Decimal) (*models.Rate, error)
}
