// Package bootstrap is the startup sequence the binaries share: .env, config,
// logger, database and dev migrations, then whatever each binary opens on top.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/migrate"
	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

// Runtime owns the resources a binary opened and closes them in reverse.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Start runs the shared startup sequence for the binary named kind.
func Start(ctx context.Context, kind string) (*Runtime, error) {
	if err := godotenv.Load(); err != nil {
		logger.New(logger.Options{ServiceName: kind}).Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Service.Kind = kind

	rt := &Runtime{
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt.OnClose("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return nil, errors.Join(fmt.Errorf("dev migrations: %w", err), rt.Close())
	}
	return rt, nil
}

// OnClose registers fn to run when the runtime closes.
func (r *Runtime) OnClose(name string, fn func() error) {
	r.closers = append(r.closers, namedCloser{name: name, close: fn})
}

// Redis opens the shared Redis client; it is closed with the runtime.
func (r *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, r.Config.Redis, r.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	r.OnClose("redis", client.Close)
	return client, nil
}

// Close runs every registered closer, newest first, and combines their errors.
func (r *Runtime) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if cerr := c.close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", c.name, cerr))
		}
	}
	r.closers = nil
	return err
}

// SignalContext is canceled on SIGINT or SIGTERM and carries the env and
// service kind as log fields.
func (r *Runtime) SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx = r.Logger.WithFields(ctx, map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Config.Service.Kind,
	})
	return ctx, stop
}

// ServeMetrics exposes the default registry on REPAIRSHOP_METRICS_ADDR in the
// background until ctx ends. A listener failure is logged, not fatal.
func (r *Runtime) ServeMetrics(ctx context.Context) {
	addr := r.Config.Service.MetricsAddr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, prometheus.DefaultGatherer, r.Logger); err != nil {
			r.Logger.Error(ctx, "metrics listener stopped", err)
		}
	}()
}

// Main starts the runtime, hands it to run under a signal context and exits
// non-zero when startup, run or shutdown fails.
func Main(kind string, run func(ctx context.Context, rt *Runtime) error) {
	ctx := context.Background()
	rt, err := Start(ctx, kind)
	if err != nil {
		logger.New(logger.Options{ServiceName: kind}).Error(ctx, "startup failed", err)
		os.Exit(1)
	}

	runCtx, stop := rt.SignalContext(ctx)
	runErr := run(runCtx, rt)
	stop()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if err := multierr.Combine(runErr, rt.Close()); err != nil {
		rt.Logger.Error(runCtx, kind+" stopped unexpectedly", err)
		os.Exit(1)
	}
	rt.Logger.Info(runCtx, kind+" shut down gracefully")
}
