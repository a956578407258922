package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mufasadev/grinpay/internal/errors"
	http2 "github.com/mufasadev/grinpay/internal/infrastructure/api/http"
	"github.com/mufasadev/grinpay/pkg/log"
)

const lookupTimeout = 5 * time.Second

type MerchantChecker interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// MerchantValidationMiddleware rejects requests for unknown merchants.
func MerchantValidationMiddleware(merchants MerchantChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := log.Component("merchant_middleware")
			merchantID := chi.URLParam(r, http2.MerchantIDParam)
			if merchantID == "" {
				logger.Error().Msg(errors.ErrMerchantIDRequired)
				errors.HandleHTTPError(w, errors.NewBadRequestError(errors.ErrMerchantIDRequired))
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
			defer cancel()
			exists, err := merchants.ExistsByID(ctx, merchantID)
			if err != nil && !errors.IsNotFound(err) {
				logger.Error().Err(err).Str("merchant_id", merchantID).Msg("merchant lookup failed")
				errors.HandleHTTPError(w, err)
				return
			}
			if !exists {
				logger.Warn().Str("merchant_id", merchantID).Msg(errors.ErrInvalidMerchantID)
				errors.HandleHTTPError(w, errors.NewNotFoundError("merchant"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
