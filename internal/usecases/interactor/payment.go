package interactor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/usecases/dtos"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

type PaymentInteractor struct {
	store  repositories.Store
	fsm    PaymentStateMachine
	wallet gateways.WalletClient
	now    func() time.Time
	logger *zerolog.Logger
}

func NewPaymentInteractor(store repositories.Store, fsm PaymentStateMachine, wallet gateways.WalletClient) *PaymentInteractor {
	return &PaymentInteractor{
		store:  store,
		fsm:    fsm,
		wallet: wallet,
		now:    time.Now,
		logger: log.Component("payment"),
	}
}

func (i *PaymentInteractor) CreatePayment(ctx context.Context, merchantID string, dto *dtos.CreatePaymentDTO) (*dtos.PaymentDTO, error) {
	payment, err := i.fsm.CreatePayment(ctx, CreatePaymentCommand{
		MerchantID:    merchantID,
		ExternalID:    dto.ExternalID,
		Amount:        dto.Amount,
		Confirmations: dto.Confirmations,
		Email:         dto.Email,
		Message:       dto.Message,
		RedirectURL:   dto.RedirectURL,
	})
	if err != nil {
		return nil, err
	}
	result := dtos.NewPaymentDTO(payment.Transaction)
	return &result, nil
}

// MakePayment accepts the payer's slate for a new payment. The slate amount
// is checked before the wallet is contacted; the wallet receives the slate
// and reports the credited amount, and only then is the payment updated.
// The receiver slate is returned to the payer.
func (i *PaymentInteractor) MakePayment(ctx context.Context, merchantID string, id uuid.UUID, rawSlate []byte) (*models.Slate, error) {
	slate, err := models.ParseSlate(rawSlate)
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	payment, err := i.fsm.GetNewPayment(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if payment.IsInvalidAmount(slate.Amount) {
		return nil, apperrors.NewWrongAmountError(uint64(payment.GrinAmount), slate.Amount)
	}

	received, err := i.wallet.Receive(ctx, slate)
	if err != nil {
		return nil, err
	}
	commit, err := received.FirstCommit()
	if err != nil {
		return nil, apperrors.NewWalletAPIError(err)
	}

	walletTx, err := i.wallet.GetTx(ctx, received.ID.String())
	if err != nil {
		return nil, err
	}

	if _, err = i.fsm.MakePayment(ctx, payment, walletTx, commit); err != nil {
		i.logger.Error().Err(err).Str("transaction_id", id.String()).Msg(apperrors.ErrFailedMakePayment)
		return nil, err
	}
	return received, nil
}

func (i *PaymentInteractor) GetPayment(ctx context.Context, merchantID string, id uuid.UUID) (*dtos.PaymentDTO, error) {
	tx, err := i.merchantPayment(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	result := dtos.NewPaymentDTO(tx)
	return &result, nil
}

func (i *PaymentInteractor) GetStatus(ctx context.Context, merchantID string, id uuid.UUID) (*dtos.PaymentStatusDTO, error) {
	tx, err := i.merchantPayment(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	height, err := i.store.ChainHeight().Get(ctx)
	if err != nil {
		return nil, err
	}

	status := &dtos.PaymentStatusDTO{
		TransactionID:         tx.ID,
		Status:                tx.Status,
		Reported:              tx.Reported,
		CurrentConfirmations:  tx.CurrentConfirmations(height),
		RequiredConfirmations: tx.Confirmations,
	}
	if left, ok := tx.TimeUntilExpired(i.now()); ok {
		seconds := int64(left / time.Second)
		status.SecondsUntilExpired = &seconds
	}
	return status, nil
}

func (i *PaymentInteractor) merchantPayment(ctx context.Context, merchantID string, id uuid.UUID) (*models.Transaction, error) {
	tx, err := i.store.Transactions().GetByIDAndType(ctx, id, models.TypePayment)
	if err != nil {
		return nil, err
	}
	if tx.MerchantID != merchantID {
		return nil, apperrors.NewNotFoundError("transaction")
	}
	return tx, nil
}
