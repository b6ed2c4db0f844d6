// Package bot runs the detection loop: list markets, find opportunities, rank
// them, and hand the best to the execution engine, repeating until shutdown.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/polyarb/arbot/internal/detector"
	"github.com/polyarb/arbot/internal/domain"
	"github.com/polyarb/arbot/internal/executor"
	"github.com/polyarb/arbot/internal/notify"
)

// Subscriber receives newly discovered outcome tokens for live quote
// streaming. Implemented by the quote feed.
type Subscriber interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
}

// Config holds loop parameters.
type Config struct {
	// PollInterval is the sleep between detection cycles.
	PollInterval time.Duration

	// MaxConcurrent caps simultaneous executions and is the top-N
	// selection size.
	MaxConcurrent int

	// MaxPosition is the maximum notional exposure per trade in USDC.
	MaxPosition float64

	// MarketLimit is the page size for the per-cycle market listing.
	MarketLimit int

	// AutoClose unwinds each trade immediately after execution, locking in
	// the detected spread instead of carrying positions.
	AutoClose bool
}

// Bot owns one detection/execution loop. The store, archiver, notifier, and
// subscriber collaborators are optional; a nil collaborator disables that
// concern.
type Bot struct {
	venue    domain.Venue
	detector *detector.Detector
	engine   *executor.Engine
	registry *TokenRegistry
	store    domain.TradeStore
	archiver domain.OpportunityArchiver
	notifier *notify.Notifier
	feed     Subscriber
	cfg      Config
	logger   *slog.Logger

	cycles    atomic.Int64
	oppsFound atomic.Int64
	executed  atomic.Int64
}

// New creates a Bot.
func New(
	venue domain.Venue,
	det *detector.Detector,
	engine *executor.Engine,
	registry *TokenRegistry,
	store domain.TradeStore,
	archiver domain.OpportunityArchiver,
	notifier *notify.Notifier,
	feed Subscriber,
	cfg Config,
	logger *slog.Logger,
) *Bot {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 5
	}
	if cfg.MarketLimit < 1 {
		cfg.MarketLimit = 50
	}
	return &Bot{
		venue:    venue,
		detector: det,
		engine:   engine,
		registry: registry,
		store:    store,
		archiver: archiver,
		notifier: notifier,
		feed:     feed,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "bot")),
	}
}

// Run executes detection cycles until ctx is cancelled, then closes every
// still-active trade and logs a final stats report. A single cycle's errors
// never terminate the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("detection loop started",
		slog.Duration("poll_interval", b.cfg.PollInterval),
		slog.Int("max_concurrent", b.cfg.MaxConcurrent),
		slog.Float64("max_position", b.cfg.MaxPosition))

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		b.runCycle(ctx)

		select {
		case <-ctx.Done():
			b.shutdown()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle performs one detect-and-execute pass.
func (b *Bot) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cycle := b.cycles.Add(1)

	markets, err := b.venue.ListMarkets(ctx, b.cfg.MarketLimit, 0)
	if err != nil {
		b.logger.Warn("listing markets", slog.String("error", err.Error()))
		return
	}
	if len(markets) == 0 {
		b.logger.Debug("no markets this cycle", slog.Int64("cycle", cycle))
		return
	}

	if b.registry != nil {
		fresh := b.registry.Update(markets)
		if b.feed != nil && len(fresh) > 0 {
			if err := b.feed.Subscribe(ctx, fresh); err != nil {
				b.logger.Warn("subscribing quote feed", slog.String("error", err.Error()))
			}
		}
	}

	opps := b.detector.Detect(ctx, markets)
	b.oppsFound.Add(int64(len(opps)))

	if b.archiver != nil && len(opps) > 0 {
		if err := b.archiver.ArchiveCycle(ctx, cycle, opps); err != nil {
			b.logger.Warn("archiving cycle",
				slog.Int64("cycle", cycle),
				slog.String("error", err.Error()))
		}
	}

	if len(opps) == 0 {
		b.logger.Debug("no opportunities",
			slog.Int64("cycle", cycle),
			slog.Int("markets", len(markets)))
		return
	}

	top := detector.SelectTop(opps, b.cfg.MaxConcurrent)
	b.logger.Info("opportunities detected",
		slog.Int64("cycle", cycle),
		slog.Int("found", len(opps)),
		slog.Int("executing", len(top)))

	b.executeBatch(ctx, top)
}

// executeBatch runs the selected opportunities concurrently, bounded by the
// concurrency cap. Legs within one opportunity stay sequential inside the
// engine.
func (b *Bot) executeBatch(ctx context.Context, opps []domain.Opportunity) {
	sem := semaphore.NewWeighted(int64(b.cfg.MaxConcurrent))
	var wg sync.WaitGroup

	for _, opp := range opps {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(opp domain.Opportunity) {
			defer wg.Done()
			defer sem.Release(1)
			b.executeOne(ctx, opp)
		}(opp)
	}
	wg.Wait()
}

// executeOne sizes, executes, persists, and optionally auto-closes a single
// opportunity.
func (b *Bot) executeOne(ctx context.Context, opp domain.Opportunity) {
	size := opp.MaxSize
	if opp.BuyPrice > 0 {
		if limit := b.cfg.MaxPosition / opp.BuyPrice; limit < size {
			size = limit
		}
	}
	if size <= 0 {
		return
	}

	trade, err := b.engine.Execute(ctx, opp, size)
	if err != nil {
		b.logger.Warn("executing opportunity",
			slog.String("opportunity_id", opp.ID),
			slog.String("market_id", opp.MarketID),
			slog.String("error", err.Error()))
		return
	}
	b.executed.Add(1)

	b.saveTrade(ctx, *trade)
	if b.notifier != nil {
		b.notifier.TradeExecuted(ctx, *trade)
	}

	if b.cfg.AutoClose {
		if b.engine.Close(ctx, trade.ID) {
			if closed, ok := b.engine.Get(trade.ID); ok {
				b.saveTrade(ctx, closed)
				if b.notifier != nil {
					b.notifier.TradeClosed(ctx, closed)
				}
			}
		}
	}
}

// shutdown closes every active trade and prints the final stats report. Runs
// on a fresh context: the loop context is already cancelled.
func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	active := b.engine.Active()
	if len(active) > 0 {
		b.logger.Info("closing active trades", slog.Int("count", len(active)))
		for _, t := range active {
			if b.engine.Close(ctx, t.ID) {
				if closed, ok := b.engine.Get(t.ID); ok {
					b.saveTrade(ctx, closed)
				}
			}
		}
	}

	b.logger.Info("session summary",
		slog.Int64("cycles", b.cycles.Load()),
		slog.Int64("opportunities", b.oppsFound.Load()),
		slog.Int64("trades_executed", b.executed.Load()))

	if b.store != nil {
		stats, err := b.store.Stats(ctx)
		if err != nil {
			b.logger.Warn("reading trade stats", slog.String("error", err.Error()))
			return
		}
		b.logger.Info("trade history",
			slog.Int64("total_trades", stats.TotalTrades),
			slog.Int64("closed_trades", stats.ClosedTrades),
			slog.Float64("total_profit", stats.TotalProfit),
			slog.Float64("avg_profit_pct", stats.AvgProfitPct),
			slog.Float64("max_profit", stats.MaxProfit))
	}
}

func (b *Bot) saveTrade(ctx context.Context, t domain.Trade) {
	if b.store == nil {
		return
	}
	if err := b.store.Save(ctx, t); err != nil {
		b.logger.Warn("saving trade",
			slog.String("trade_id", t.ID),
			slog.String("error", err.Error()))
	}
}
