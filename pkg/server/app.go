package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"FolioFeed/internal/domain/models"
	"FolioFeed/internal/usecase"
	"FolioFeed/pkg/config"
	xhttp "FolioFeed/pkg/http"
	"FolioFeed/pkg/http/middleware"
	applogger "FolioFeed/pkg/logger"
)

// Services are the entry points shared by the HTTP API and the CLI.
type Services struct {
	Symbols   *usecase.SymbolService
	Quotes    *usecase.QuoteService
	News      *usecase.NewsService
	Portfolio *usecase.PortfolioService
}

// NewsJobs is what the scheduler needs from the news pipeline.
type NewsJobs interface {
	RefreshHoldings(ctx context.Context, holdings []models.Holding) (int, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Sweeper is a cache whose expired entries can be dropped on demand.
type Sweeper interface {
	Name() string
	Sweep() int
}

type UsageSource interface {
	All() []models.UsageWindow
}

type UsageRecorder interface {
	RecordUsage(provider string, requests, errors, throttled int64)
}

type closer struct {
	name  string
	close func() error
}

type Option func(*App)

// WithSweepers registers caches swept by the maintenance job.
func WithSweepers(caches ...Sweeper) Option {
	return func(a *App) {
		a.caches = append(a.caches, caches...)
	}
}

// WithCloser registers a resource released on shutdown. Closers run in
// reverse registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, close: fn})
		}
	}
}

// App encapsulates the application lifecycle: HTTP API, scheduled jobs and
// infrastructure shutdown.
type App struct {
	Services

	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	httpServer *xhttp.Server
	limiter    middleware.Allower
	scheduler  *cron.Cron
	news       NewsJobs
	usage      UsageSource
	metrics    UsageRecorder
	caches     []Sweeper
	closers    []closer
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	svc Services,
	handler xhttp.Handler,
	limiter middleware.Allower,
	usage UsageSource,
	rec UsageRecorder,
	opts ...Option,
) *App {
	a := &App{
		Services: svc,
		cfg:      cfg,
		logger:   l.Component("app"),
		handler:  handler,
		limiter:  limiter,
		usage:    usage,
		metrics:  rec,
	}
	if svc.News != nil {
		a.news = svc.News
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Watchlist returns the configured holdings refreshed by the scheduler.
func (a *App) Watchlist() []models.Holding {
	out := make([]models.Holding, 0, len(a.cfg.Scheduler.Watchlist))
	for _, w := range a.cfg.Scheduler.Watchlist {
		sym := strings.ToUpper(strings.TrimSpace(w.Symbol))
		if sym == "" {
			continue
		}
		out = append(out, models.Holding{Symbol: sym, Shares: w.Shares, CompanyName: w.CompanyName})
	}
	return out
}

// Retention is how long stored articles are kept.
func (a *App) Retention() time.Duration {
	return a.cfg.Store.Retention
}

// RefreshWatchlist ingests fresh news for the watchlist.
func (a *App) RefreshWatchlist(ctx context.Context) {
	holdings := a.Watchlist()
	if a.news == nil || len(holdings) == 0 {
		return
	}
	start := time.Now()
	n, err := a.news.RefreshHoldings(ctx, holdings)
	if err != nil {
		a.logger.Warn("watchlist refresh failed",
			applogger.Int("holdings", len(holdings)),
			applogger.Error(err),
		)
		return
	}
	a.logger.Info("watchlist refreshed",
		applogger.Int("stored", n),
		applogger.Duration("took", time.Since(start)),
	)
}

// Maintain prunes old articles, sweeps caches and mirrors provider usage into
// metrics.
func (a *App) Maintain(ctx context.Context) {
	if a.news != nil && a.cfg.Store.Retention > 0 {
		pruned, err := a.news.Prune(ctx, a.cfg.Store.Retention)
		if err != nil {
			a.logger.Warn("article prune failed", applogger.Error(err))
		} else if pruned > 0 {
			a.logger.Info("articles pruned", applogger.Int64("count", pruned))
		}
	}

	for _, c := range a.caches {
		if n := c.Sweep(); n > 0 {
			a.logger.Debug("cache swept", applogger.String("cache", c.Name()), applogger.Int("expired", n))
		}
	}

	if a.usage == nil {
		return
	}
	for _, w := range a.usage.All() {
		if a.metrics != nil {
			a.metrics.RecordUsage(w.Provider, w.Requests, w.Errors, w.Throttled)
		}
		a.logger.Info("provider usage",
			applogger.String("provider", w.Provider),
			applogger.Int64("requests", w.Requests),
			applogger.Int64("errors", w.Errors),
			applogger.Int64("throttled", w.Throttled),
		)
	}
}

// Run starts the HTTP server and scheduler and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithCORSOrigins(a.cfg.Server.CORSOrigins),
	}
	if a.limiter != nil {
		opts = append(opts, xhttp.WithRateLimiter(a.limiter))
	}
	a.httpServer = xhttp.NewServer(a.handler, a.logger, opts...)

	if err := a.startScheduler(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	cancel()
	return a.Shutdown(context.Background())
}

func (a *App) startScheduler(ctx context.Context) error {
	if !a.cfg.Scheduler.Enabled {
		return nil
	}
	a.scheduler = cron.New()
	if _, err := a.scheduler.AddFunc(a.cfg.Scheduler.RefreshCron, func() { a.RefreshWatchlist(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}
	if _, err := a.scheduler.AddFunc(a.cfg.Scheduler.MaintenanceCron, func() { a.Maintain(ctx) }); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	a.scheduler.Start()
	a.logger.Info("scheduler started",
		applogger.String("refresh", a.cfg.Scheduler.RefreshCron),
		applogger.String("maintenance", a.cfg.Scheduler.MaintenanceCron),
		applogger.Int("watchlist", len(a.cfg.Scheduler.Watchlist)),
	)
	return nil
}

// Shutdown stops the scheduler and HTTP server, then releases every
// registered resource. It returns the joined close errors.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
