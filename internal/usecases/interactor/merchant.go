package interactor

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/usecases/dtos"
)

type MerchantInteractor struct {
	merchantRepository repositories.MerchantRepository
}

func NewMerchantInteractor(repository repositories.MerchantRepository) *MerchantInteractor {
	return &MerchantInteractor{merchantRepository: repository}
}

func (m *MerchantInteractor) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := m.merchantRepository.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MerchantInteractor) GetBalance(ctx context.Context, id string) (*dtos.BalanceDTO, error) {
	merchant, err := m.merchantRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dtos.BalanceDTO{
		Balance:     merchant.Balance,
		BalanceGrin: models.FromGrin(merchant.Balance).String(),
	}, nil
}

// Register creates a merchant with a fresh id and callback token.
func (m *MerchantInteractor) Register(ctx context.Context, email string, callbackURL *string) (*models.Merchant, error) {
	if email == "" {
		return nil, apperrors.NewBadRequestError("email is required")
	}
	if callbackURL != nil {
		if u, err := url.Parse(*callbackURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, apperrors.NewBadRequestError("invalid callback_url")
		}
	}

	merchant := &models.Merchant{
		ID:          uuid.NewString(),
		Email:       email,
		Token:       strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		CallbackURL: callbackURL,
	}
	if err := m.merchantRepository.Create(ctx, merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}
