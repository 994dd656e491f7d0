package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type serveConfig struct {
	debug bool
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web portal",
		Long: `Serve the login, register and dashboard pages. The stored session is
restored in the background; protected pages show a loading page until then.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, cfg)
		},
	}

	cmd.Flags().String("addr", ":3000", "listen address for the web portal")
	cmd.Flags().BoolVar(&cfg.debug, "debug", false, "log submitted payloads")

	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions, cfg *serveConfig) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()

	d, err := buildClientDeps(ctx, cmd, opts, registry)
	if err != nil {
		return err
	}
	defer d.Close()

	controller := portal.NewPortalController(d.manager, d.transport)
	controller.Debug = cfg.debug
	controller.Logger = d.logger.With("component", "portal")

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			AppName:               "portal",
			DisableStartupMessage: true,
			ErrorHandler:          controller.ErrorHandler,
		})
	})
	portal.RegisterPortalRoutes(srv.Router(), controller)
	portal.MountMetrics(srv.WrappedRouter(), controller.Routes.Metrics, registry)

	go func() {
		if err := d.manager.Restore(ctx); err != nil {
			d.logger.Error("session restore failed", "error", err)
		}
	}()

	errc := make(chan error, 1)
	go func() {
		d.logger.Info("web portal listening", "addr", d.cfg.Portal.Addr, "api", d.cfg.API.URL)
		errc <- srv.Serve(d.cfg.Portal.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
