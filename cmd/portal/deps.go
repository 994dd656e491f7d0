package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/internal/logging"
	"github.com/goliatone/go-portal/internal/xdg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// clientDeps bundles everything a client subcommand needs.
type clientDeps struct {
	cfg       *portal.Config
	logger    *slog.Logger
	store     portal.Store
	transport *portal.HTTPTransport
	manager   *portal.Manager
	closers   []func() error
}

func (d *clientDeps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadConfig resolves the config file path and layers flags on top.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*portal.Config, error) {
	path := opts.configFile
	if path == "" {
		path = xdg.ConfigFile()
	}
	return portal.LoadConfig(path, cmd.Flags())
}

func newLogger(cfg *portal.Config, service string) *slog.Logger {
	return logging.Setup(service, version, cfg.Log.Format, cfg.Log.Level, nil)
}

// buildClientDeps wires store, transport and manager from config. When
// reg is not nil session events are also exported as metrics.
func buildClientDeps(ctx context.Context, cmd *cobra.Command, opts *rootOptions, reg prometheus.Registerer) (*clientDeps, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	d := &clientDeps{
		cfg:    cfg,
		logger: newLogger(cfg, "portal"),
	}

	store, closer, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	d.store = store
	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	d.transport = portal.NewHTTPTransport(cfg.API.URL, store,
		portal.WithTimeout(cfg.API.Timeout),
		portal.WithTransportLogger(d.logger.With("component", "transport")),
	)

	sinks := portal.ActivitySinks{activityLogSink(d.logger)}
	if reg != nil {
		sinks = append(sinks, portal.NewMetricsSink(reg))
	}

	d.manager = portal.NewManager(d.transport, store,
		portal.WithManagerLogger(d.logger.With("component", "manager")),
		portal.WithActivitySink(sinks),
	)

	return d, nil
}

// openStore returns the session store selected by cfg.Driver.
func openStore(ctx context.Context, cfg portal.StoreConfig) (portal.Store, func() error, error) {
	switch cfg.Driver {
	case portal.StoreDriverMemory:
		return portal.NewMemoryStore(), nil, nil

	case portal.StoreDriverFile:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, nil, err
		}
		return portal.NewFileStore(cfg.Path), nil, nil

	case portal.StoreDriverSQLite:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, nil, err
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db := bun.NewDB(sqldb, sqlitedialect.New())

		store := portal.NewBunStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case portal.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: redis ping: %v", portal.ErrStoreUnavailable, err)
		}
		return portal.NewRedisStore(client, cfg.RedisPrefix), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func activityLogSink(logger portal.Logger) portal.ActivitySink {
	return portal.ActivitySinkFunc(func(_ context.Context, event portal.ActivityEvent) error {
		logger.Debug("session activity",
			"event", string(event.EventType),
			"user_id", event.UserID,
			"from", event.FromState.String(),
			"to", event.ToState.String(),
		)
		return nil
	})
}
