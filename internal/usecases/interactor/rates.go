package interactor

import (
	"context"

	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/shopspring/decimal"
)

type RateInteractor struct {
	rateRepository repositories.RateRepository
}

func NewRateInteractor(repository repositories.RateRepository) *RateInteractor {
	return &RateInteractor{rateRepository: repository}
}

// SetRate registers the price of one GRIN in currency.
func (r *RateInteractor) SetRate(ctx context.Context, currency, rate string) (*models.Rate, error) {
	c, err := models.ParseCurrency(currency)
	if err != nil {
		return nil, apperrors.NewUnsupportedCurrencyError(currency)
	}
	if c == models.GRIN {
		return nil, apperrors.NewBadRequestError("GRIN is priced in itself")
	}

	value, err := decimal.NewFromString(rate)
	if err != nil || !value.IsPositive() {
		return nil, apperrors.NewBadRequestError("rate must be a positive decimal")
	}
	return r.rateRepository.Upsert(ctx, c, value)
}
