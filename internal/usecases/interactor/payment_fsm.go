package interactor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/gateways"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/domain/repositories"
	apperrors "github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

// PaymentStateMachine has one method per legal payment transition. Each
// method accepts the payment in its source state and returns it in the
// target state. A transition attempted from any other state fails with a
// WrongTransactionStatusError and writes nothing.
type PaymentStateMachine interface {
	CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (models.NewPayment, error)
	GetNewPayment(ctx context.Context, merchantID string, id uuid.UUID) (models.NewPayment, error)
	MakePayment(ctx context.Context, payment models.NewPayment, walletTx *models.TxLogEntry, commit string) (models.PendingPayment, error)
	RejectPayment(ctx context.Context, payment models.Rejectable) (models.RejectedPayment, error)
	SeenInChainPayment(ctx context.Context, payment models.PendingPayment, height int64) (models.InChainPayment, error)
	SeenInChainRejected(ctx context.Context, payment models.RejectedPayment, height int64) (models.RefundPayment, error)
	ConfirmPayment(ctx context.Context, payment models.InChainPayment, currentHeight int64) (models.ConfirmedPayment, error)
	ReportPayment(ctx context.Context, payment models.Reportable) error

	// WithStore returns a state machine whose writes go through store,
	// typically the transactional store handed out by Store.InTx.
	WithStore(store repositories.Store) PaymentStateMachine
}

type CreatePaymentCommand struct {
	MerchantID    string
	ExternalID    string
	Amount        models.Money
	Confirmations int64
	Email         *string
	Message       string
	RedirectURL   *string
}

type PaymentFSM struct {
	store     repositories.Store
	merchants repositories.MerchantRepository
	rates     repositories.RateRepository
	notifier  gateways.Notifier
	now       func() time.Time
	logger    *zerolog.Logger
}

type FSMOption func(*PaymentFSM)

// WithClock replaces time.Now, used by tests to move past TTLs.
func WithClock(now func() time.Time) FSMOption {
	return func(f *PaymentFSM) {
		f.now = now
	}
}

func NewPaymentFSM(
	store repositories.Store,
	merchants repositories.MerchantRepository,
	rates repositories.RateRepository,
	notifier gateways.Notifier,
	opts ...FSMOption,
) *PaymentFSM {
	f := &PaymentFSM{
		store:     store,
		merchants: merchants,
		rates:     rates,
		notifier:  notifier,
		now:       time.Now,
		logger:    log.Component("payment_fsm"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *PaymentFSM) WithStore(store repositories.Store) PaymentStateMachine {
	clone := *f
	clone.store = store
	return &clone
}

// CreatePayment converts the quoted amount to nanogrin and stores a new payment.
func (f *PaymentFSM) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (models.NewPayment, error) {
	if cmd.Amount.Amount <= 0 {
		return models.NewPayment{}, apperrors.NewBadRequestError("amount must be positive")
	}
	if cmd.ExternalID == "" {
		return models.NewPayment{}, apperrors.NewBadRequestError("external_id is required")
	}
	if cmd.Confirmations == 0 {
		cmd.Confirmations = models.DefaultConfirmations
	}
	if cmd.Confirmations < 0 {
		return models.NewPayment{}, apperrors.NewBadRequestError("confirmations must be positive")
	}

	if _, err := f.merchants.GetByID(ctx, cmd.MerchantID); err != nil {
		return models.NewPayment{}, err
	}

	grinAmount, err := f.grinAmount(ctx, cmd.Amount)
	if err != nil {
		return models.NewPayment{}, err
	}

	now := f.now().UTC()
	tx := &models.Transaction{
		ID:              uuid.New(),
		ExternalID:      cmd.ExternalID,
		MerchantID:      cmd.MerchantID,
		GrinAmount:      grinAmount,
		Amount:          cmd.Amount,
		Status:          models.StatusNew,
		Confirmations:   cmd.Confirmations,
		Email:           cmd.Email,
		Message:         cmd.Message,
		RedirectURL:     cmd.RedirectURL,
		TransactionType: models.TypePayment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err = f.store.Transactions().Create(ctx, tx); err != nil {
		return models.NewPayment{}, err
	}

	f.logger.Info().
		Str("transaction_id", tx.ID.String()).
		Str("merchant_id", tx.MerchantID).
		Str("amount", tx.Amount.String()).
		Int64("grin_amount", tx.GrinAmount).
		Msg("payment created")
	return models.AsNewPayment(tx)
}

func (f *PaymentFSM) grinAmount(ctx context.Context, amount models.Money) (int64, error) {
	if amount.Currency == models.GRIN {
		return amount.Amount, nil
	}

	rate, err := f.rates.GetByCurrency(ctx, amount.Currency)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return 0, apperrors.NewUnsupportedCurrencyError(string(amount.Currency))
		}
		return 0, err
	}

	converted, err := amount.ConvertTo(models.GRIN, rate.Rate)
	if err != nil {
		return 0, apperrors.NewUnsupportedCurrencyError(string(amount.Currency))
	}
	if converted.Amount <= 0 {
		return 0, apperrors.NewBadRequestError("amount is too small")
	}
	return converted.Amount, nil
}

// GetNewPayment loads a payment of merchantID that still awaits the payer's slate.
func (f *PaymentFSM) GetNewPayment(ctx context.Context, merchantID string, id uuid.UUID) (models.NewPayment, error) {
	tx, err := f.store.Transactions().GetByIDAndType(ctx, id, models.TypePayment)
	if err != nil {
		return models.NewPayment{}, err
	}
	if tx.MerchantID != merchantID {
		return models.NewPayment{}, apperrors.NewNotFoundError("transaction")
	}
	return models.AsNewPayment(tx)
}

// MakePayment checks the amount the wallet actually received and links the wallet transaction.
func (f *PaymentFSM) MakePayment(ctx context.Context, payment models.NewPayment, walletTx *models.TxLogEntry, commit string) (models.PendingPayment, error) {
	if _, err := models.AsNewPayment(payment.Transaction); err != nil {
		return models.PendingPayment{}, err
	}
	if walletTx == nil {
		return models.PendingPayment{}, apperrors.NewGeneralError("missing wallet transaction for payment %s", payment.ID)
	}

	received := uint64(walletTx.AmountCredited)
	if payment.IsInvalidAmount(received) {
		return models.PendingPayment{}, apperrors.NewWrongAmountError(uint64(payment.GrinAmount), received)
	}

	updated, err := f.store.Transactions().UpdateWalletFields(ctx, payment.ID, walletTx.WalletFields(commit))
	if err != nil {
		return models.PendingPayment{}, err
	}

	f.logger.Info().Str("transaction_id", payment.ID.String()).Str("commit", commit).Msg("payment pending")
	return models.AsPendingPayment(updated)
}

func (f *PaymentFSM) RejectPayment(ctx context.Context, payment models.Rejectable) (models.RejectedPayment, error) {
	if payment == nil {
		return models.RejectedPayment{}, apperrors.NewGeneralError("nil payment")
	}
	tx := models.RejectableTransaction(payment)
	if _, err := models.AsRejectable(tx); err != nil {
		return models.RejectedPayment{}, err
	}
	if !tx.IsExpired(f.now()) {
		return models.RejectedPayment{}, apperrors.NewGeneralError("payment %s has not expired", tx.ID)
	}

	updated, err := f.store.Transactions().UpdateStatus(ctx, tx.ID, tx.Status, models.StatusRejected)
	if err != nil {
		return models.RejectedPayment{}, err
	}

	f.logger.Info().Str("transaction_id", tx.ID.String()).Str("from", tx.Status.String()).Msg("payment rejected")
	return models.AsRejectedPayment(updated)
}

func (f *PaymentFSM) SeenInChainPayment(ctx context.Context, payment models.PendingPayment, height int64) (models.InChainPayment, error) {
	if _, err := models.AsPendingPayment(payment.Transaction); err != nil {
		return models.InChainPayment{}, err
	}

	updated, err := f.store.Transactions().UpdateHeightAndStatus(ctx, payment.ID, models.StatusPending, models.StatusInChain, height)
	if err != nil {
		return models.InChainPayment{}, err
	}

	f.logger.Info().Str("transaction_id", payment.ID.String()).Int64("height", height).Msg("payment seen in chain")
	return models.AsInChainPayment(updated)
}

// SeenInChainRejected records an output that reached the chain after its payment was rejected.
// The funds have to be returned to the payer out of band.
func (f *PaymentFSM) SeenInChainRejected(ctx context.Context, payment models.RejectedPayment, height int64) (models.RefundPayment, error) {
	if _, err := models.AsRejectedPayment(payment.Transaction); err != nil {
		return models.RefundPayment{}, err
	}

	updated, err := f.store.Transactions().UpdateHeightAndStatus(ctx, payment.ID, models.StatusRejected, models.StatusRefund, height)
	if err != nil {
		return models.RefundPayment{}, err
	}

	f.logger.Warn().Str("transaction_id", payment.ID.String()).Int64("height", height).Msg("rejected payment reached the chain, refund required")
	return models.AsRefundPayment(updated)
}

// ConfirmPayment moves a buried payment to confirmed and credits the merchant in the same write.
func (f *PaymentFSM) ConfirmPayment(ctx context.Context, payment models.InChainPayment, currentHeight int64) (models.ConfirmedPayment, error) {
	if _, err := models.AsInChainPayment(payment.Transaction); err != nil {
		return models.ConfirmedPayment{}, err
	}
	if !payment.IsConfirmedAt(currentHeight) {
		return models.ConfirmedPayment{}, apperrors.NewGeneralError(
			"payment %s has %d of %d confirmations", payment.ID, payment.CurrentConfirmations(currentHeight), payment.Confirmations,
		)
	}

	updated, err := f.store.Transactions().ConfirmAndCredit(ctx, payment.ID)
	if err != nil {
		return models.ConfirmedPayment{}, err
	}

	f.logger.Info().
		Str("transaction_id", payment.ID.String()).
		Str("merchant_id", payment.MerchantID).
		Int64("grin_amount", payment.GrinAmount).
		Msg("payment confirmed")
	return models.AsConfirmedPayment(updated)
}

// ReportPayment delivers the outcome to the merchant. A merchant without a
// callback URL is owed nothing and the payment is marked reported at once.
// A failed delivery schedules the next attempt.
func (f *PaymentFSM) ReportPayment(ctx context.Context, payment models.Reportable) error {
	if payment == nil {
		return apperrors.NewGeneralError("nil payment")
	}
	// the caller's copy may be stale; decide on the stored row
	tx, err := f.store.Transactions().GetByID(ctx, models.ReportableTransaction(payment).ID)
	if err != nil {
		return err
	}
	if _, err = models.AsReportable(tx); err != nil {
		return err
	}
	if tx.Reported {
		return apperrors.NewGeneralError("payment %s is already reported", tx.ID)
	}
	if tx.ReportAttempts >= models.MaxReportAttempts {
		return apperrors.NewGeneralError("payment %s exhausted %d report attempts", tx.ID, tx.ReportAttempts)
	}

	merchant, err := f.merchants.GetByID(ctx, tx.MerchantID)
	if err != nil {
		return err
	}

	if !merchant.HasCallback() {
		return f.store.Transactions().MarkReported(ctx, tx.ID, tx.Status)
	}

	notifyErr := f.notifier.Notify(ctx, *merchant.CallbackURL, merchant.Token, models.NewConfirmation(tx, merchant.Token))
	if notifyErr == nil {
		if err = f.store.Transactions().MarkReported(ctx, tx.ID, tx.Status); err != nil {
			return err
		}
		f.logger.Info().Str("transaction_id", tx.ID.String()).Str("status", tx.Status.String()).Msg("payment reported")
		return nil
	}

	delay := NewReportBackOff(tx.ReportAttempts).NextBackOff()
	if delay == backoff.Stop {
		return apperrors.NewGeneralError("payment %s exhausted %d report attempts", tx.ID, tx.ReportAttempts)
	}
	updated, err := f.store.Transactions().RecordReportAttempt(ctx, tx.ID, f.now().UTC().Add(delay))
	if err != nil {
		return err
	}

	event := f.logger.Warn()
	if updated.ReportAttempts >= models.MaxReportAttempts {
		event = f.logger.Error()
	}
	event.Err(notifyErr).
		Str("transaction_id", tx.ID.String()).
		Int("attempts", updated.ReportAttempts).
		Dur("retry_in", delay).
		Bool("abandoned", updated.ReportAttempts >= models.MaxReportAttempts).
		Msg("merchant callback failed")
	return notifyErr
}
