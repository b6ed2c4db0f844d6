// Package notify alerts operators about trade activity. Notifications are
// dispatched to all registered senders and filtered by event type so an
// operator receives only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/polyarb/arbot/internal/domain"
)

// Event types emitted by the bot.
const (
	EventTradeExecuted = "trade_executed"
	EventTradeClosed   = "trade_closed"
	EventError         = "error"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches notifications to one or more Senders, filtered by an
// allowed-event set. An empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// named in events pass the filter; an empty events slice allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// TradeExecuted reports a freshly executed (or simulated) trade.
func (n *Notifier) TradeExecuted(ctx context.Context, t domain.Trade) {
	title := "Trade executed"
	if t.Status == domain.TradeStatusSimulated {
		title = "Trade simulated"
	}
	msg := fmt.Sprintf(
		"market %s\nbuy %d @ %.4f, sell %d @ %.4f\nsize %.2f, profit %.2f USDC (%.2f%%)",
		t.MarketID,
		t.Buy.OutcomeIndex, t.Buy.Price,
		t.Sell.OutcomeIndex, t.Sell.Price,
		t.Buy.Quantity, t.ProfitAmount, t.ProfitPct,
	)
	n.notify(ctx, EventTradeExecuted, title, msg)
}

// TradeClosed reports that a trade was unwound.
func (n *Notifier) TradeClosed(ctx context.Context, t domain.Trade) {
	msg := fmt.Sprintf("market %s\ntrade %s closed, realized %.2f USDC",
		t.MarketID, t.ID, t.ProfitAmount)
	n.notify(ctx, EventTradeClosed, "Trade closed", msg)
}

// Error reports an operational failure worth a human's attention.
func (n *Notifier) Error(ctx context.Context, title string, err error) {
	n.notify(ctx, EventError, title, err.Error())
}

// notify applies the event filter, then dispatches to every sender. A single
// sender failure never blocks delivery to the rest; failures are logged, not
// returned, because notification is always best-effort for the bot.
func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if n == nil || len(n.senders) == 0 {
		return
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return
	}

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}
}
