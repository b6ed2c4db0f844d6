package domain

import "time"

// TradeStatus tracks the trade lifecycle.
type TradeStatus string

const (
	TradeStatusExecuted  TradeStatus = "executed"
	TradeStatusSimulated TradeStatus = "simulated"
	TradeStatusClosed    TradeStatus = "closed"
)

// Trade pairs the buy and sell legs executed against one opportunity. It is
// created only after both legs are confirmed (or both simulated), owned by
// the execution engine until closed, then handed to the trade store.
type Trade struct {
	ID            string
	OpportunityID string
	MarketID      string
	Buy           Order
	Sell          Order
	ProfitAmount  float64
	ProfitPct     float64
	Status        TradeStatus
	ExecutedAt    time.Time
	ClosedAt      *time.Time
}
