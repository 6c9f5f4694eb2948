package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harentsoaR/wellness-api/internal/cache"
	"github.com/harentsoaR/wellness-api/internal/config"
	"github.com/harentsoaR/wellness-api/internal/logger"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellness-api",
		Short: "Appointment booking API for doctors, labs and hospitals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create collection validators and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(cfg)

			ctx, cancel := context.WithTimeout(contextOrBackground(cmd), time.Minute)
			defer cancel()

			client, db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			if err := store.EnsureSchema(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("database", cfg.MongoDatabase).Msg("schema is up to date")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password, phone string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}

			ctx, cancel := context.WithTimeout(contextOrBackground(cmd), 30*time.Second)
			defer cancel()

			client, db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			if phone != "" {
				if phone, err = utils.NewPhoneNormalizer(cfg.PhoneRegion).Normalize(phone); err != nil {
					return err
				}
			}
			hashed, err := utils.HashPassword(password, cfg.BcryptCost)
			if err != nil {
				return err
			}

			users := store.NewUserRepo(db, cache.NewLRUStore(1, time.Second), 0, zerolog.Nop())
			admin := models.User{FullName: name, Email: email, Password: hashed, Role: models.RoleAdmin, Phone: phone}
			if err := users.Create(ctx, &admin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "full name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&phone, "phone", "", "optional phone number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
