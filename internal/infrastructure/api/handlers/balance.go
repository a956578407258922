package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mufasadev/grinpay/internal/errors"
	http2 "github.com/mufasadev/grinpay/internal/infrastructure/api/http"
	"github.com/mufasadev/grinpay/internal/usecases/dtos"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/rs/zerolog"
)

type BalanceService interface {
	GetBalance(ctx context.Context, id string) (*dtos.BalanceDTO, error)
}

type BalanceHandler struct {
	interactor BalanceService
	logger     *zerolog.Logger
}

func NewBalanceHandler(interactor BalanceService) *BalanceHandler {
	return &BalanceHandler{interactor: interactor, logger: log.Component("balance_handler")}
}

func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	merchantID := chi.URLParam(r, http2.MerchantIDParam)

	balance, err := h.interactor.GetBalance(r.Context(), merchantID)
	if err != nil {
		h.logger.Error().Err(err).Str("merchant_id", merchantID).Msg("failed to get balance")
		errors.HandleHTTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}
