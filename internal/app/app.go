// Package app wires the bot's dependencies from configuration and manages the
// application lifecycle: start the quote feed, run the detection loop, tear
// everything down in reverse order on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/polyarb/arbot/internal/bot"
	"github.com/polyarb/arbot/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the quote feed when configured, and
// blocks in the detection loop until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	mode := "simulation"
	if a.cfg.Trading.Enabled {
		mode = "live"
	}
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", mode),
		slog.String("log_level", a.cfg.LogLevel))

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	var feedSub bot.Subscriber
	if deps.QuoteFeed != nil {
		feedSub = deps.QuoteFeed
	}

	b := bot.New(
		deps.Venue,
		deps.Detector,
		deps.Engine,
		deps.Registry,
		deps.TradeStore,
		deps.Archiver,
		deps.Notifier,
		feedSub,
		bot.Config{
			PollInterval:  a.cfg.Trading.PollInterval.Duration,
			MaxConcurrent: a.cfg.Trading.MaxConcurrent,
			MaxPosition:   a.cfg.Trading.MaxPosition,
			MarketLimit:   a.cfg.Trading.MarketLimit,
			AutoClose:     a.cfg.Trading.AutoClose,
		},
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	if deps.QuoteFeed != nil {
		g.Go(func() error {
			defer deps.QuoteFeed.Close()
			if err := deps.QuoteFeed.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				// The feed only powers revalidation; losing it degrades,
				// never kills, the bot.
				a.logger.Warn("quote feed stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		return b.Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close tears down all resources in reverse registration order. Safe to call
// more than once.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
