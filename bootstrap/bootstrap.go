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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/artpar/imgquota/adapters/clock"
	"github.com/artpar/imgquota/adapters/hasher"
	apihttp "github.com/artpar/imgquota/adapters/http"
	"github.com/artpar/imgquota/adapters/idgen"
	"github.com/artpar/imgquota/adapters/memory"
	"github.com/artpar/imgquota/adapters/metrics"
	"github.com/artpar/imgquota/adapters/redis"
	"github.com/artpar/imgquota/adapters/sqlite"
	"github.com/artpar/imgquota/app"
	"github.com/artpar/imgquota/config"
	"github.com/artpar/imgquota/ports"
)

// Options controls application initialization.
type Options struct {
	// ConfigPath is the YAML file to load and watch. When it does not exist
	// the configuration comes from IMGQUOTA_* environment variables.
	ConfigPath string

	// Version is reported by /version.
	Version string

	// Registry receives the metrics. Nil uses the prometheus default registry.
	Registry *prometheus.Registry

	// Clock overrides the real clock (tests).
	Clock ports.Clock

	// LogOutput overrides stdout for the logger (tests).
	LogOutput io.Writer
}

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config // as loaded at startup
	Ledger     ports.Ledger
	Enforcer   *app.Enforcer
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	holder *config.Holder
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, watch, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := NewLogger(cfg.Logging, out)

	var holder *config.Holder
	if watch {
		holder, err = config.NewHolder(opts.ConfigPath, logger)
		if err != nil {
			return nil, err
		}
		cfg = holder.Get()
	}
	logger.Info().
		Str("backend", cfg.Ledger.Backend).
		Int("plans", len(cfg.Plans)).
		Msg("initializing imgquota")

	a := &App{Logger: logger, Config: cfg, holder: holder}

	if err := a.init(opts); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

func (a *App) init(opts Options) error {
	cfg := a.Config

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		if opts.Registry != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registry)
			metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
		} else {
			a.Metrics = metrics.New()
		}
		a.Logger.Info().Msg("prometheus metrics enabled")
	}

	ledger, err := OpenLedger(context.Background(), cfg.Ledger, a.Logger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	a.Ledger = ledger

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	a.Enforcer, err = NewEnforcer(cfg, ledger, clk, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("init enforcer: %w", err)
	}
	a.Logger.Info().Str("strategy", string(a.Enforcer.Strategy())).Msg("quota enforcer ready")

	keys := hasher.NewKeyVerifier(hasher.NewBcrypt(0), cfg.Auth.ServiceKeyHashes...)
	if !keys.Enabled() {
		a.Logger.Warn().Msg("no service key configured, /v1 API is unauthenticated")
	}

	router := apihttp.NewRouter(
		apihttp.NewQuotaHandler(a.Enforcer, ledger, clk, a.Logger),
		apihttp.NewHealthHandler(ledger),
		a.Logger,
		apihttp.RouterConfig{
			Metrics:        a.Metrics,
			MetricsHandler: metricsHandler,
			ServiceKeys:    keys,
			EnableOpenAPI:  cfg.OpenAPI.Enabled,
			RequestTimeout: cfg.Server.RequestTimeout,
			Version:        opts.Version,
		},
	)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if a.holder != nil {
		a.holder.OnChange(a.ApplyConfig)
		a.holder.OnError(func(err error) { a.Metrics.ObserveReload(err, time.Now()) })
	}
	return nil
}

// NewEnforcer builds the quota enforcer described by cfg on top of ledger.
func NewEnforcer(cfg *config.Config, ledger ports.UsageLedger, clk ports.Clock, logger zerolog.Logger, m *metrics.Collector) (*app.Enforcer, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	strategy, err := app.ParseStrategy(cfg.Enforcement.Strategy)
	if err != nil {
		return nil, err
	}
	ids, err := idgen.New(cfg.Ledger.IDFormat)
	if err != nil {
		return nil, err
	}

	deps := app.EnforcerDeps{
		Ledger: ledger,
		Clock:  clk,
		IDGen:  ids,
		Logger: logger,
	}
	if m != nil {
		deps.Metrics = m
	}
	return app.NewEnforcer(deps, app.EnforcerConfig{
		Catalog:     catalog,
		Strategy:    strategy,
		ReadRetries: cfg.Enforcement.ReadRetries,
		RetryDelay:  cfg.Enforcement.RetryDelay,
		Timeout:     cfg.Enforcement.Timeout,
	})
}

// OpenLedger opens the configured ledger backend.
func OpenLedger(ctx context.Context, cfg config.LedgerConfig, logger zerolog.Logger) (ports.Ledger, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory ledger, usage is lost on restart")
		return memory.NewLedger(memory.LedgerConfig{NumShards: cfg.Shards}), nil

	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("dsn", cfg.DSN).Msg("sqlite ledger ready")
		return sqlite.NewLedger(db), nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		l, err := redis.NewLedger(ctx, client, cfg.Redis.Prefix)
		if err != nil {
			client.Close()
			return nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis ledger ready")
		return l, nil

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// ApplyConfig applies the reloadable parts of cfg: the plan catalog and the
// log level. Other changes need a restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	catalog, err := cfg.Catalog()
	if err != nil {
		a.Logger.Error().Err(err).Msg("rejecting reloaded plan catalog")
		a.Metrics.ObserveReload(err, time.Now())
		return
	}
	a.Enforcer.SetCatalog(catalog)

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	a.Metrics.ObserveReload(nil, time.Now())
	a.Logger.Info().Int("plans", catalog.Len()).Msg("plan catalog swapped")
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.holder.WatchSignals()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("ledger close error")
		}
		a.Ledger = nil
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// NewLogger builds the process logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// loadConfig loads path when it exists, reporting that it should be
// watched, and falls back to the environment otherwise.
func loadConfig(path string) (*config.Config, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err := config.Load(path)
			return cfg, err == nil, err
		}
	}
	cfg, err := config.LoadFromEnv()
	return cfg, false, err
}
