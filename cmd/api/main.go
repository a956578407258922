package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mufasadev/grinpay/internal/app"
	"github.com/mufasadev/grinpay/internal/config"
	"github.com/mufasadev/grinpay/internal/di"
	"github.com/mufasadev/grinpay/internal/errors"
	"github.com/mufasadev/grinpay/internal/infrastructure/api/routers"
	"github.com/mufasadev/grinpay/internal/infrastructure/database/db_client"
	"github.com/mufasadev/grinpay/pkg/log"
	"github.com/spf13/cobra"
)

const (
	appName = "grinpay"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Grin payment gateway for merchants",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ratesCmd())
	rootCmd.AddCommand(merchantsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reconciliation jobs",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	container, err := di.NewContainer(db, cfg)
	if err != nil {
		return err
	}

	router := routers.NewRouter(container.Handlers())
	service := app.NewService(cfg)
	return service.Run(cmd.Context(), router, container.Scheduler)
}

// bootstrap loads configuration, initialises logging and connects to the database.
func bootstrap(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := []log.LoggerOption{log.WithLevelName(cfg.LogLevel)}
	if cfg.LogConsole {
		opts = append(opts, log.WithConsoleLogger())
	}
	if cfg.LogFile != "" {
		opts = append(opts, log.WithFileLogger(cfg.LogFile))
	}
	log.Init(appName, opts...)
	logger := log.GetLogger()

	db, err := db_client.NewPGClient(cfg.PostgreSQL).Connect(ctx)
	if err != nil {
		logger.Error().Err(err).Msg(errors.ErrorFailedToConnectToTheDatabase)
		return nil, nil, err
	}
	return cfg, db, nil
}
