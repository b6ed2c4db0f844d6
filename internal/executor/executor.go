// Package executor turns detected opportunities into two-leg trades: a buy of
// the cheaper outcome and a sell of its complement, in strict sequence, with
// a single rollback when the sell leg fails after the buy leg landed.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polyarb/arbot/internal/crypto"
	"github.com/polyarb/arbot/internal/domain"
)

// OrderSigner signs the canonical payload of one leg. Satisfied by
// *crypto.Signer; nil in simulation mode.
type OrderSigner interface {
	SignOrder(payload crypto.OrderPayload) (string, error)
	AddressHex() string
}

// TokenResolver maps a market outcome index to its outcome token id, used to
// look up live quotes during pre-submission revalidation.
type TokenResolver func(marketID string, outcomeIndex int) (string, bool)

// Config holds engine parameters.
type Config struct {
	// Simulated fabricates both legs without venue calls.
	Simulated bool

	// RevalidateQuotes re-checks cached live quotes immediately before the
	// buy leg and vetoes the trade if the pair has repriced to 1.0 or
	// above. Veto-only: a missing quote never blocks execution.
	RevalidateQuotes bool
}

// Engine executes opportunities and owns the active-trade set. Safe for
// concurrent use; distinct opportunities may execute in parallel while the
// two legs within one opportunity stay strictly ordered.
type Engine struct {
	venue   domain.Venue
	signer  OrderSigner
	quotes  domain.QuoteCache // optional, revalidation only
	resolve TokenResolver     // optional, revalidation only
	cfg     Config
	logger  *slog.Logger

	mu     sync.Mutex
	trades map[string]*domain.Trade
}

// New creates an Engine. signer may be nil when cfg.Simulated is true; quotes
// and resolve may be nil unless cfg.RevalidateQuotes is set.
func New(venue domain.Venue, signer OrderSigner, quotes domain.QuoteCache, resolve TokenResolver, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		venue:   venue,
		signer:  signer,
		quotes:  quotes,
		resolve: resolve,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "executor")),
		trades:  make(map[string]*domain.Trade),
	}
}

// Execute turns an opportunity into a trade of the given size. In simulation
// mode it always succeeds; in live mode it places the buy leg, then the sell
// leg, and unwinds the buy leg if the sell leg fails. The returned trade has
// been registered in the active set.
func (e *Engine) Execute(ctx context.Context, opp domain.Opportunity, size float64) (*domain.Trade, error) {
	if size <= 0 {
		return nil, fmt.Errorf("executor: size must be positive, got %g", size)
	}

	if e.cfg.Simulated {
		return e.executeSimulated(opp, size), nil
	}
	return e.executeLive(ctx, opp, size)
}

// executeSimulated fabricates both legs without contacting the venue.
func (e *Engine) executeSimulated(opp domain.Opportunity, size float64) *domain.Trade {
	now := time.Now().UTC()

	trade := &domain.Trade{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		MarketID:      opp.MarketID,
		Buy: domain.Order{
			ID:           "sim_buy_" + opp.ID,
			MarketID:     opp.MarketID,
			OutcomeIndex: opp.BuyOutcome,
			Side:         domain.OrderSideBuy,
			Price:        opp.BuyPrice,
			Quantity:     size,
			TotalCost:    opp.BuyPrice * size,
			Status:       domain.OrderStatusSimulated,
			CreatedAt:    now,
		},
		Sell: domain.Order{
			ID:           "sim_sell_" + opp.ID,
			MarketID:     opp.MarketID,
			OutcomeIndex: opp.SellOutcome,
			Side:         domain.OrderSideSell,
			Price:        opp.SellPrice,
			Quantity:     size,
			TotalCost:    opp.SellPrice * size,
			Status:       domain.OrderStatusSimulated,
			CreatedAt:    now,
		},
		ProfitAmount: size * (opp.SellPrice - opp.BuyPrice),
		ProfitPct:    opp.ProfitPct,
		Status:       domain.TradeStatusSimulated,
		ExecutedAt:   now,
	}

	e.register(trade)

	e.logger.Info("simulated trade",
		slog.String("trade_id", trade.ID),
		slog.String("opportunity_id", opp.ID),
		slog.String("market_id", opp.MarketID),
		slog.Float64("size", size),
		slog.Float64("profit", trade.ProfitAmount))

	return trade
}

// executeLive runs the two-phase live path: buy leg, then sell leg, with one
// buy-side cancel on sell failure. Cancel outcome is logged but never changes
// the returned error.
func (e *Engine) executeLive(ctx context.Context, opp domain.Opportunity, size float64) (*domain.Trade, error) {
	if e.cfg.RevalidateQuotes {
		if err := e.revalidate(ctx, opp); err != nil {
			return nil, err
		}
	}

	buyID, err := e.placeLeg(ctx, opp.MarketID, opp.BuyOutcome, opp.BuyPrice, size, true)
	if err != nil {
		return nil, fmt.Errorf("executor: buy leg for %s: %w", opp.ID, err)
	}

	sellID, err := e.placeLeg(ctx, opp.MarketID, opp.SellOutcome, opp.SellPrice, size, false)
	if err != nil {
		// A resting buy leg with no sell leg is worse than no trade.
		if cancelErr := e.venue.CancelOrder(ctx, buyID); cancelErr != nil {
			e.logger.Error("rollback cancel failed",
				slog.String("opportunity_id", opp.ID),
				slog.String("buy_order_id", buyID),
				slog.String("error", cancelErr.Error()))
		} else {
			e.logger.Warn("sell leg failed, buy leg cancelled",
				slog.String("opportunity_id", opp.ID),
				slog.String("buy_order_id", buyID))
		}
		return nil, fmt.Errorf("executor: sell leg for %s: %w", opp.ID, err)
	}

	now := time.Now().UTC()
	trade := &domain.Trade{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		MarketID:      opp.MarketID,
		Buy: domain.Order{
			ID:           buyID,
			MarketID:     opp.MarketID,
			OutcomeIndex: opp.BuyOutcome,
			Side:         domain.OrderSideBuy,
			Price:        opp.BuyPrice,
			Quantity:     size,
			TotalCost:    opp.BuyPrice * size,
			Status:       domain.OrderStatusConfirmed,
			CreatedAt:    now,
		},
		Sell: domain.Order{
			ID:           sellID,
			MarketID:     opp.MarketID,
			OutcomeIndex: opp.SellOutcome,
			Side:         domain.OrderSideSell,
			Price:        opp.SellPrice,
			Quantity:     size,
			TotalCost:    opp.SellPrice * size,
			Status:       domain.OrderStatusConfirmed,
			CreatedAt:    now,
		},
		ProfitAmount: size * (opp.SellPrice - opp.BuyPrice),
		ProfitPct:    opp.ProfitPct,
		Status:       domain.TradeStatusExecuted,
		ExecutedAt:   now,
	}

	e.register(trade)

	e.logger.Info("trade executed",
		slog.String("trade_id", trade.ID),
		slog.String("opportunity_id", opp.ID),
		slog.String("market_id", opp.MarketID),
		slog.String("buy_order_id", buyID),
		slog.String("sell_order_id", sellID),
		slog.Float64("size", size),
		slog.Float64("profit", trade.ProfitAmount))

	return trade, nil
}

// placeLeg signs and submits one order leg, returning the venue-assigned id.
func (e *Engine) placeLeg(ctx context.Context, marketID string, outcome int, price, size float64, buy bool) (string, error) {
	if e.signer == nil {
		return "", domain.ErrSignerUninitialized
	}

	payload := crypto.OrderPayload{
		MarketID:     marketID,
		OutcomeIndex: outcome,
		Price:        price,
		Quantity:     size,
		Buy:          buy,
	}
	sig, err := e.signer.SignOrder(payload)
	if err != nil {
		return "", err
	}

	orderID, err := e.venue.SubmitOrder(ctx, domain.OrderRequest{
		MarketID:     marketID,
		OutcomeIndex: outcome,
		Price:        price,
		Quantity:     size,
		Buy:          buy,
		Signer:       e.signer.AddressHex(),
		Signature:    sig,
	})
	if err != nil {
		return "", err
	}
	if orderID == "" {
		return "", fmt.Errorf("venue returned no order id")
	}

	return orderID, nil
}

// revalidate checks the freshest cached quotes for both outcomes and vetoes
// the trade when the pair has repriced to 1.0 or above. Missing quotes or a
// cache failure never block execution.
func (e *Engine) revalidate(ctx context.Context, opp domain.Opportunity) error {
	if e.quotes == nil || e.resolve == nil {
		return nil
	}

	buyToken, okBuy := e.resolve(opp.MarketID, opp.BuyOutcome)
	sellToken, okSell := e.resolve(opp.MarketID, opp.SellOutcome)
	if !okBuy || !okSell {
		return nil
	}

	buyQuote, err := e.quotes.GetQuote(ctx, buyToken)
	if err != nil {
		return nil
	}
	sellQuote, err := e.quotes.GetQuote(ctx, sellToken)
	if err != nil {
		return nil
	}

	if sum := buyQuote.Mid() + sellQuote.Mid(); sum >= 1.0 {
		e.logger.Info("opportunity vetoed by live quotes",
			slog.String("opportunity_id", opp.ID),
			slog.String("market_id", opp.MarketID),
			slog.Float64("live_sum", sum))
		return fmt.Errorf("executor: opportunity %s repriced to %.4f before submission", opp.ID, sum)
	}

	return nil
}

// Close unwinds a trade: cancels both legs independently, marks the trade
// closed with a close timestamp, and reports whether the trade was known. An
// unknown id returns false with a warning; closing an already-closed trade is
// a no-op returning true.
//
// The closed transition happens under the map lock; the venue cancels do not,
// so a slow cancel never blocks execution or closure of other trades.
func (e *Engine) Close(ctx context.Context, tradeID string) bool {
	e.mu.Lock()
	trade, ok := e.trades[tradeID]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("close requested for unknown trade", slog.String("trade_id", tradeID))
		return false
	}
	if trade.Status == domain.TradeStatusClosed {
		e.mu.Unlock()
		return true
	}

	// Claim the trade before touching the venue: a concurrent Close sees it
	// already closed and no-ops instead of double-cancelling.
	wasLive := trade.Status == domain.TradeStatusExecuted
	buyID, sellID := trade.Buy.ID, trade.Sell.ID
	marketID := trade.MarketID

	now := time.Now().UTC()
	trade.Buy.Status = domain.OrderStatusCancelled
	trade.Sell.Status = domain.OrderStatusCancelled
	trade.Status = domain.TradeStatusClosed
	trade.ClosedAt = &now
	e.mu.Unlock()

	// Simulated legs were never placed, so there is nothing to cancel on
	// the venue. Live cancels run independently: one leg failing to cancel
	// must not stop the attempt on the other.
	if wasLive {
		for _, orderID := range []string{buyID, sellID} {
			if err := e.venue.CancelOrder(ctx, orderID); err != nil {
				e.logger.Warn("cancelling leg",
					slog.String("trade_id", tradeID),
					slog.String("order_id", orderID),
					slog.String("error", err.Error()))
			}
		}
	}

	e.logger.Info("trade closed",
		slog.String("trade_id", tradeID),
		slog.String("market_id", marketID))

	return true
}

// Get returns a copy of a trade from the active set.
func (e *Engine) Get(tradeID string) (domain.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	trade, ok := e.trades[tradeID]
	if !ok {
		return domain.Trade{}, false
	}
	return *trade, true
}

// Active returns copies of all trades not yet closed.
func (e *Engine) Active() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Trade, 0, len(e.trades))
	for _, t := range e.trades {
		if t.Status != domain.TradeStatusClosed {
			out = append(out, *t)
		}
	}
	return out
}

func (e *Engine) register(trade *domain.Trade) {
	e.mu.Lock()
	e.trades[trade.ID] = trade
	e.mu.Unlock()
}
