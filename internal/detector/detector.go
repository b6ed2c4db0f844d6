// Package detector scans binary markets for complementary-pair mispricings:
// outcome pairs whose quoted prices sum below 1.0.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/polyarb/arbot/internal/domain"
)

const (
	// depthNotional is the assumed available depth in USDC at the best
	// price. A policy constant, not a derived quantity.
	depthNotional = 100.0

	// maxSizeCap is the absolute cap on tradable size in outcome tokens.
	maxSizeCap = 1000.0

	// scanLockTTL bounds how long a per-market single-flight lock is held
	// if a scan dies without releasing it.
	scanLockTTL = 30 * time.Second
)

// Config holds detection parameters.
type Config struct {
	// MinProfitPct is the minimum profit percentage for an opportunity to
	// be emitted. An opportunity exactly at the threshold is emitted.
	MinProfitPct float64

	// MaxConcurrentScans bounds simultaneous per-market book fetches.
	MaxConcurrentScans int
}

// Detector finds arbitrage opportunities across markets. Market scans run
// concurrently; failures in one market never abort the others.
type Detector struct {
	venue  domain.Venue
	locks  domain.LockManager // optional; nil disables single-flight
	cfg    Config
	logger *slog.Logger
}

// New creates a Detector. locks may be nil, in which case per-market
// single-flight is not enforced (fine for a single process).
func New(venue domain.Venue, locks domain.LockManager, cfg Config, logger *slog.Logger) *Detector {
	if cfg.MaxConcurrentScans <= 0 {
		cfg.MaxConcurrentScans = 10
	}
	return &Detector{
		venue:  venue,
		locks:  locks,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "detector")),
	}
}

// Detect scans every market and returns all opportunities found, merged into
// a single unranked list. Callers rank with SelectTop so top-N selection is
// global across markets.
func (d *Detector) Detect(ctx context.Context, markets []domain.Market) []domain.Opportunity {
	var (
		mu   sync.Mutex
		opps []domain.Opportunity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxConcurrentScans)

	for i := range markets {
		market := markets[i]
		g.Go(func() error {
			found := d.scanMarket(gctx, market)
			if len(found) > 0 {
				mu.Lock()
				opps = append(opps, found...)
				mu.Unlock()
			}
			// Per-market failures are logged inside scanMarket; never
			// propagate them so sibling scans keep running.
			return nil
		})
	}
	_ = g.Wait()

	return opps
}

// scanMarket fetches one market's book and evaluates all outcome pairs.
// Returns nil when the market is skipped for any reason.
func (d *Detector) scanMarket(ctx context.Context, market domain.Market) []domain.Opportunity {
	if !market.Binary() {
		return nil
	}

	if d.locks != nil {
		release, err := d.locks.Acquire(ctx, "scan:"+market.ID, scanLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				d.logger.Debug("market scan already in flight", slog.String("market_id", market.ID))
			} else {
				d.logger.Warn("acquiring scan lock",
					slog.String("market_id", market.ID),
					slog.String("error", err.Error()))
			}
			return nil
		}
		defer release()
	}

	book, err := d.venue.OrderBook(ctx, market.ID)
	if err != nil {
		d.logger.Debug("skipping market: book unavailable",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()))
		return nil
	}

	prices := ExtractPrices(book, len(market.OutcomeTokens))
	if len(prices) < 2 {
		d.logger.Debug("skipping market: prices not extractable",
			slog.String("market_id", market.ID))
		return nil
	}

	return analyzePairs(market.ID, prices, d.cfg.MinProfitPct)
}

// analyzePairs evaluates every unordered outcome pair (i, j) with i < j and
// returns the opportunities meeting the profit threshold. A market may yield
// more than one opportunity per cycle.
func analyzePairs(marketID string, prices []float64, minProfitPct float64) []domain.Opportunity {
	var opps []domain.Opportunity

	for i := 0; i < len(prices); i++ {
		for j := i + 1; j < len(prices); j++ {
			opp, ok := checkPair(marketID, prices, i, j, minProfitPct)
			if ok {
				opps = append(opps, opp)
			}
		}
	}

	return opps
}

// checkPair evaluates one outcome pair for complementarity. A pair summing to
// 1.0 or above is never a signal.
func checkPair(marketID string, prices []float64, i, j int, minProfitPct float64) (domain.Opportunity, bool) {
	sum := prices[i] + prices[j]
	if sum >= 1.0 || sum <= 0 {
		return domain.Opportunity{}, false
	}

	profitPct := ((1.0 - sum) / sum) * 100
	if profitPct < minProfitPct {
		return domain.Opportunity{}, false
	}

	// Buy the cheaper outcome; ties go to i. The sell price is the
	// complement's own quote, not 1-buy_price: that is the price the sell
	// leg will actually be submitted at.
	buy, sell := i, j
	if prices[j] < prices[i] {
		buy, sell = j, i
	}
	buyPrice, sellPrice := prices[buy], prices[sell]

	maxSize := depthNotional
	if buyPrice > 0 {
		maxSize = depthNotional / buyPrice
		if maxSize > maxSizeCap {
			maxSize = maxSizeCap
		}
	}

	return domain.Opportunity{
		ID:          fmt.Sprintf("%s_%d_%d_%s", marketID, i, j, uuid.NewString()[:8]),
		MarketID:    marketID,
		BuyOutcome:  buy,
		SellOutcome: sell,
		BuyPrice:    buyPrice,
		SellPrice:   sellPrice,
		ProfitPct:   profitPct,
		MaxSize:     maxSize,
		DetectedAt:  time.Now().UTC(),
	}, true
}

// SelectTop returns the n most profitable opportunities in descending
// profit order. The sort is stable, so ties keep their detection order.
func SelectTop(opps []domain.Opportunity, n int) []domain.Opportunity {
	sorted := make([]domain.Opportunity, len(opps))
	copy(sorted, opps)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].ProfitPct > sorted[b].ProfitPct
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
