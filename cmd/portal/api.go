package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-portal/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var errMissingSigningKey = errors.New("signing key is required: set --signing-key or PORTAL_SERVER_SIGNING_KEY")

func newAPICmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Run the reference portal API",
		Long: `Run a local API implementing register, login, logout and the
authenticated user listing, backed by sqlite.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd, opts)
		},
	}

	cmd.Flags().String("api-addr", ":8080", "listen address for the API")
	cmd.Flags().String("database", "file:portal.db?cache=shared", "sqlite DSN for accounts")
	cmd.Flags().String("signing-key", "", "HMAC key used to sign access tokens")
	cmd.Flags().Duration("token-ttl", 24*time.Hour, "access token lifetime")
	cmd.Flags().String("allowed-origin", "http://localhost:3000", "CORS origin allowed to call the API")

	return cmd
}

func runAPI(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := newLogger(cfg, "portal-api")

	if cfg.Server.SigningKey == "" {
		return errMissingSigningKey
	}

	db, err := server.OpenDB(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	users := server.NewUsers(db)
	if err := users.EnsureSchema(ctx); err != nil {
		return err
	}

	srv := server.New(server.Config{
		SigningKey:    cfg.Server.SigningKey,
		TokenTTL:      cfg.Server.TokenTTL,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		BcryptCost:    bcrypt.DefaultCost,
	}, users, server.WithLogger(logger))

	logger.Info("portal api listening", "addr", cfg.Server.Addr)
	return srv.Listen(ctx, cfg.Server.Addr)
}
