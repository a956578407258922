package routers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/handlers"
	http2 "github.com/mufasadev/grinpay/internal/infrastructure/api/http"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/middlewares"
)

type Handlers struct {
	Payments  *handlers.PaymentHandler
	Balance   *handlers.BalanceHandler
	Merchants middlewares.MerchantChecker
}

func NewRouter(h Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Route(fmt.Sprintf("/merchants/{%s}", http2.MerchantIDParam), func(r chi.Router) {
			r.Use(middlewares.MerchantValidationMiddleware(h.Merchants))
			r.Route("/payments", func(r chi.Router) {
				r.Post("/", h.Payments.CreatePayment)
				r.Route(fmt.Sprintf("/{%s}", http2.TransactionIDParam), func(r chi.Router) {
					r.Get("/", h.Payments.GetPayment)
					r.Post("/", h.Payments.MakePayment)
					r.Get("/status", h.Payments.GetStatus)
				})
			})
			r.Get("/balance", h.Balance.GetBalance)
		})
	})

	return router
}
