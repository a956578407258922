package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mufasadev/grinpay/internal/domain/models"
	"github.com/mufasadev/grinpay/internal/errors"
	http2 "github.com/mufasadev/grinpay/internal/infrastructure/api/http"
	"github.com/mufasadev/grinpay/internal/usecases/dtos"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

// PaymentService is the part of the payment interactor the API needs.
type PaymentService interface {
	CreatePayment(ctx context.Context, merchantID string, dto *dtos.CreatePaymentDTO) (*dtos.PaymentDTO, error)
	MakePayment(ctx context.Context, merchantID string, id uuid.UUID, rawSlate []byte) (*models.Slate, error)
	GetPayment(ctx context.Context, merchantID string, id uuid.UUID) (*dtos.PaymentDTO, error)
	GetStatus(ctx context.Context, merchantID string, id uuid.UUID) (*dtos.PaymentStatusDTO, error)
}

type PaymentHandler struct {
	interactor PaymentService
	logger     *zerolog.Logger
}

func NewPaymentHandler(interactor PaymentService) *PaymentHandler {
	return &PaymentHandler{interactor: interactor, logger: log.Component("payment_handler")}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreatePaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidRequestBody))
		return
	}

	merchantID := chi.URLParam(r, http2.MerchantIDParam)
	payment, err := h.interactor.CreatePayment(r.Context(), merchantID, &dto)
	if err != nil {
		h.logger.Error().Err(err).Str("merchant_id", merchantID).Msg(errors.ErrFailedCreatePayment)
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// MakePayment takes the payer's slate as the request body and answers with
// the slate signed by the receiving wallet.
func (h *PaymentHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, http2.MaxSlateSize))
	if err != nil {
		h.logger.Error().Err(err).Msg(errors.ErrFailedDecodeRequestBody)
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidRequestBody))
		return
	}

	merchantID := chi.URLParam(r, http2.MerchantIDParam)
	slate, err := h.interactor.MakePayment(r.Context(), merchantID, id, body)
	if err != nil {
		h.logger.Error().Err(err).Str("transaction_id", id.String()).Msg(errors.ErrFailedMakePayment)
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, slate)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	payment, err := h.interactor.GetPayment(r.Context(), chi.URLParam(r, http2.MerchantIDParam), id)
	if err != nil {
		errors.HandleHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}

	status, err := h.interactor.GetStatus(r.Context(), chi.URLParam(r, http2.MerchantIDParam), id)
	if err != nil {
		errors.HandleHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func transactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, http2.TransactionIDParam))
	if err != nil {
		errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrInvalidTransactionID))
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
