// Package cli provides common initialization shared by cmd/gastos and
// cmd/gastos-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/alerts"
	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/categorizer"
	"gastos/internal/config"
	"gastos/internal/log"
	"gastos/internal/parser"
	"gastos/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the logger described by cfg and sets it as the default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// App holds the engines and services wired over one backend.
type App struct {
	Config      *config.Config
	Logger      *log.Logger
	Backend     *backend.BackendResult
	Parser      *parser.Parser
	Categorizer *categorizer.Engine
	Alerts      *alerts.Engine
	Expenses    *services.ExpenseService
	Categories  *services.CategoryService
	Caches      *cache.Manager
}

// Option adjusts the wiring of an App.
type Option func(*options)

type options struct {
	notifier services.Notifier
	events   services.KeywordEventPublisher
}

// WithNotifier publishes alerts produced while handling messages.
func WithNotifier(n services.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithKeywordEvents announces keyword changes to other processes.
func WithKeywordEvents(p services.KeywordEventPublisher) Option {
	return func(o *options) { o.events = p }
}

// Bootstrap opens the configured backend and wires the parser, categorizer,
// alert engine and services over it.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	store := res.Store

	p := parser.New(parser.WithLogger(logger))
	cat := categorizer.New(store,
		categorizer.WithHistory(store),
		categorizer.WithCandidateWriter(store),
		categorizer.WithCacheTTL(cfg.CategoryCacheTTL),
		categorizer.WithStorageTimeout(cfg.StorageTimeout),
		categorizer.WithLogger(logger))
	eval := alerts.New(store, store,
		alerts.WithSuppressionWindow(cfg.AlertSuppressionWindow),
		alerts.WithStorageTimeout(cfg.StorageTimeout),
		alerts.WithLogger(logger))

	expenseOpts := []services.ExpenseOption{services.WithLogger(logger)}
	if o.notifier != nil {
		expenseOpts = append(expenseOpts, services.WithNotifier(o.notifier))
	}
	categoryOpts := []services.CategoryOption{
		services.WithInvalidator(cat),
		services.WithCategoryLogger(logger),
	}
	if res.CategorySource != nil {
		categoryOpts = append(categoryOpts, services.WithCategorySource(res.CategorySource))
	}
	if o.events != nil {
		categoryOpts = append(categoryOpts, services.WithKeywordEvents(o.events))
	}

	caches := cache.NewManager(logger)
	caches.Register(cat.Cache())
	caches.Register(eval.Suppressor())

	return &App{
		Config:      cfg,
		Logger:      logger,
		Backend:     res,
		Parser:      p,
		Categorizer: cat,
		Alerts:      eval,
		Expenses:    services.NewExpenseService(p, cat, eval, store, expenseOpts...),
		Categories:  services.NewCategoryService(store, categoryOpts...),
		Caches:      caches,
	}, nil
}

// Close stops cache cleanup and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Backend.Close()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// ShutdownTimeout bounds graceful shutdown of background processors.
const ShutdownTimeout = 10 * time.Second
