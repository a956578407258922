package main

import (
	"encoding/json"
	"fmt"

	"github.com/mufasadev/grinpay/internal/infrastructure/database/migrations"
	"github.com/mufasadev/grinpay/internal/infrastructure/database/repositories"
	"github.com/mufasadev/grinpay/internal/usecases/interactor"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err = migrations.Apply(cmd.Context(), db); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Manage GRIN exchange rates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "set [currency] [rate]",
		Short:   "Set the price of one GRIN in a currency",
		Example: "  grinpay rates set EUR 0.25",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			rate, err := interactor.NewRateInteractor(repositories.NewRateRepositoryImpl(db)).
				SetRate(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "1 GRIN = %s %s\n", rate.Rate.String(), rate.ID)
			return nil
		},
	})
	return cmd
}

func merchantsCmd() *cobra.Command {
	var callbackURL string

	cmd := &cobra.Command{
		Use:   "merchants",
		Short: "Manage merchants",
	}
	add := &cobra.Command{
		Use:   "add [email]",
		Short: "Register a merchant and print its id and callback token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			var callback *string
			if callbackURL != "" {
				callback = &callbackURL
			}
			merchant, err := interactor.NewMerchantInteractor(repositories.NewMerchantRepositoryImpl(db)).
				Register(cmd.Context(), args[0], callback)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				ID    string `json:"id"`
				Email string `json:"email"`
				Token string `json:"token"`
			}{merchant.ID, merchant.Email, merchant.Token})
		},
	}
	add.Flags().StringVar(&callbackURL, "callback-url", "", "URL notified when a payment is confirmed or rejected")
	cmd.AddCommand(add)
	return cmd
}
