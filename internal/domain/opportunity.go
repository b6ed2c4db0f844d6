package domain

import "time"

// Opportunity is a detected complementary-pair mispricing: the two outcome
// prices of a binary market sum to strictly less than 1.0 by at least the
// configured profit margin.
//
// Invariants: BuyPrice <= SellPrice, BuyPrice + SellPrice < 1.0,
// ProfitPct >= the detector's configured minimum. Consumed at most once by
// the execution engine.
type Opportunity struct {
	ID          string
	MarketID    string
	BuyOutcome  int // index of the cheaper outcome
	SellOutcome int
	BuyPrice    float64
	SellPrice   float64 // the complement's own quoted price, not 1 - BuyPrice
	ProfitPct   float64
	MaxSize     float64
	DetectedAt  time.Time
}
