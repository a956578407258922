package di

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mufasadev/grinpay/internal/app"
	"github.com/mufasadev/grinpay/internal/config"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/handlers"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/routers"
	"github.com/mufasadev/grinpay/internal/infrastructure/callback"
	"github.com/mufasadev/grinpay/internal/infrastructure/database/repositories"
	"github.com/mufasadev/grinpay/internal/infrastructure/node"
	"github.com/mufasadev/grinpay/internal/infrastructure/rpc"
	"github.com/mufasadev/grinpay/internal/infrastructure/wallet"
	"github.com/mufasadev/grinpay/internal/usecases/interactor"
	"github.com/mufasadev/grinpay/pkg/workerpool"
)

type Container struct {
	PaymentInteractor        *interactor.PaymentInteractor
	MerchantInteractor       *interactor.MerchantInteractor
	RateInteractor           *interactor.RateInteractor
	ReconciliationInteractor *interactor.ReconciliationInteractor
	PaymentHandler           *handlers.PaymentHandler
	BalanceHandler           *handlers.BalanceHandler
	Scheduler                *app.Scheduler
}

// NewContainer creates a new Container instance.
func NewContainer(db *pgxpool.Pool, cfg *config.Config) (*Container, error) {
	store := repositories.NewStore(db)
	merchantRepository := repositories.NewMerchantRepositoryImpl(db)
	rateRepository := repositories.NewRateRepositoryImpl(db)

	nodeClient, err := node.NewClient(rpc.Config{
		URL:        cfg.NodeURL,
		User:       cfg.NodeUser,
		Password:   cfg.NodePassword,
		Timeout:    cfg.NodeTimeout,
		MaxElapsed: cfg.TickTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("node client: %w", err)
	}
	walletClient, err := wallet.NewClient(rpc.Config{
		URL:        cfg.WalletURL,
		User:       cfg.WalletUser,
		Password:   cfg.WalletPassword,
		Timeout:    cfg.WalletTimeout,
		MaxElapsed: cfg.WalletTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("wallet client: %w", err)
	}
	notifier := callback.NewNotifier(cfg.CallbackTimeout)
	pool := workerpool.New(cfg.WorkerPoolSize)

	fsm := interactor.NewPaymentFSM(store, merchantRepository, rateRepository, notifier)

	paymentInteractor := interactor.NewPaymentInteractor(store, fsm, walletClient)
	merchantInteractor := interactor.NewMerchantInteractor(merchantRepository)
	rateInteractor := interactor.NewRateInteractor(rateRepository)
	reconciliation := interactor.NewReconciliationInteractor(store, fsm, nodeClient, pool)

	scheduler := app.NewScheduler(cfg.TickTimeout,
		app.Job{Name: "reject_expired_new", Interval: cfg.RejectNewInterval, Handler: app.JobFunc(reconciliation.RejectExpiredNew)},
		app.Job{Name: "reject_expired_pending", Interval: cfg.RejectPendingInterval, Handler: app.JobFunc(reconciliation.RejectExpiredPending)},
		app.Job{Name: "sync_with_node", Interval: cfg.SyncInterval, Handler: app.JobFunc(reconciliation.SyncWithNode)},
		app.Job{Name: "autoconfirm", Interval: cfg.AutoconfirmInterval, Handler: app.JobFunc(reconciliation.Autoconfirm)},
		app.Job{Name: "report_confirmed", Interval: cfg.ReportInterval, Handler: app.JobFunc(reconciliation.ReportConfirmed)},
		app.Job{Name: "report_rejected", Interval: cfg.ReportInterval, Handler: app.JobFunc(reconciliation.ReportRejected)},
	)

	return &Container{
		PaymentInteractor:        paymentInteractor,
		MerchantInteractor:       merchantInteractor,
		RateInteractor:           rateInteractor,
		ReconciliationInteractor: reconciliation,
		PaymentHandler:           handlers.NewPaymentHandler(paymentInteractor),
		BalanceHandler:           handlers.NewBalanceHandler(merchantInteractor),
		Scheduler:                scheduler,
	}, nil
}

// Handlers groups what the router needs.
func (c *Container) Handlers() routers.Handlers {
	return routers.Handlers{
		Payments:  c.PaymentHandler,
		Balance:   c.BalanceHandler,
		Merchants: c.MerchantInteractor,
	}
}
