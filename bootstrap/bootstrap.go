// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/bazaargate/adapters/clock"
	apihttp "github.com/artpar/bazaargate/adapters/http"
	"github.com/artpar/bazaargate/adapters/metrics"
	"github.com/artpar/bazaargate/app"
	"github.com/artpar/bazaargate/config"
	"github.com/artpar/bazaargate/ports"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Stores     *Stores
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	// Services
	Query  *app.QueryService
	Resets *app.ResetScheduler

	holder *config.Holder
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration comes from BAZAARGATE_* environment variables only.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// Registry receives the Prometheus collectors. Defaults to a fresh registry.
	Registry *prometheus.Registry

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// New loads configuration and creates the application.
// A config file on disk is watched for changes; env-only config is static.
func New(opts Options) (*App, error) {
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			a, err := NewFromConfig(cfg, opts)
			if err != nil {
				return nil, err
			}
			holder, err := config.NewHolder(opts.ConfigPath, a.Logger.With().Str("component", "config").Logger())
			if err != nil {
				a.Shutdown()
				return nil, err
			}
			a.attachHolder(holder, opts.ConfigPath)
			return a, nil
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewFromConfig(cfg, opts)
}

// NewFromConfig creates the application from an already loaded configuration.
func NewFromConfig(cfg *config.Config, opts Options) (*App, error) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)

	logger.Info().Msg("initializing bazaargate")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.Stores = stores

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewWithRegistry(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info().Msg("prometheus metrics enabled")
	}

	var m ports.Metrics
	if a.Metrics != nil {
		m = a.Metrics
	}

	a.Query = app.NewQueryService(app.QueryDeps{
		Snapshots: stores.Snapshots,
		Keys:      stores.Keys,
		Metrics:   m,
		Logger:    logger.With().Str("component", "query").Logger(),
	}, app.QueryConfig{
		Policies:        cfg.Policies(),
		MaxHistoryLimit: cfg.Query.MaxHistoryLimit,
	})

	a.Resets = app.NewResetScheduler(app.ResetDeps{
		Keys:    stores.Keys,
		Clock:   clock.Real{},
		Metrics: m,
		Logger:  logger.With().Str("component", "quota_reset").Logger(),
	}, cfg.Quota.ResetInterval)

	router := apihttp.NewRouterWithConfig(
		apihttp.NewBazaarHandler(a.Query, logger),
		apihttp.NewHealthHandler(stores.DB, a.Resets),
		logger,
		apihttp.RouterConfig{
			Metrics:        a.Metrics,
			MetricsHandler: metricsHandler,
			Version:        opts.Version,
			RequestTimeout: cfg.Server.WriteTimeout,
		},
	)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// attachHolder wires hot reload of the reloadable fields.
func (a *App) attachHolder(holder *config.Holder, path string) {
	a.holder = holder
	holder.OnChange(a.ApplyConfig)
	if a.Metrics != nil {
		holder.OnReload(func(err error) {
			a.Metrics.ConfigReload(err, time.Now())
		})
	}

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("config file watch disabled")
	}
	holder.WatchSignals()
}

// ApplyConfig pushes the reloadable fields of cfg into the running services.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Query.UpdateConfig(cfg.Policies(), cfg.Query.MaxHistoryLimit)
	SetLogLevel(cfg.Logging.Level)
	a.Config = cfg

	dyn := a.Query.Config()
	a.Logger.Info().
		Int("max_history_limit", dyn.MaxHistoryLimit).
		Bool("snapshot_requires_key", dyn.Policies.Snapshot.RequireKey).
		Str("log_level", zerolog.GlobalLevel().String()).
		Msg("configuration applied")
}

// Run starts the reset scheduler and the HTTP server, and blocks until a
// termination signal or a server error.
func (a *App) Run() error {
	a.Resets.Start()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	notifySystemd(a.Logger, daemon.SdNotifyReady)

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	notifySystemd(a.Logger, daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Stop reset loop after in-flight requests drain
	if a.Resets != nil {
		a.Resets.Stop()
	}

	// Close database
	if a.Stores != nil {
		if err := a.Stores.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// notifySystemd reports service state when running under systemd.
func notifySystemd(logger zerolog.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		logger.Debug().Str("state", state).Msg("sd_notify sent")
	}
}

// NewLogger builds the process logger from the logging section and sets the
// global level, which is what hot reload adjusts.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	SetLogLevel(cfg.Level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// SetLogLevel sets the global log level. Unknown levels fall back to info.
func SetLogLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
