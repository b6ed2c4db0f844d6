package domain

import (
	"context"
	"time"
)

// TradeStats summarizes persisted trade history for the shutdown report.
type TradeStats struct {
	TotalTrades  int64
	ClosedTrades int64
	TotalProfit  float64
	AvgProfitPct float64
	MaxProfit    float64
}

// TradeStore persists trade history. The engine only writes; nothing in the
// detection or execution path reads prior trades back to make decisions.
type TradeStore interface {
	Save(ctx context.Context, trade Trade) error
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	Stats(ctx context.Context) (TradeStats, error)
}

// QuoteCache holds the freshest best bid/ask per outcome token. Implemented
// by the redis cache and written by the ws feed.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, tokenID string) (Quote, error)
}

// LockManager provides per-key mutual exclusion so a market is never analyzed
// by two overlapping detection passes.
type LockManager interface {
	// Acquire returns an unlock function, or ErrLockHeld when another party
	// holds the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// OpportunityArchiver receives each cycle's emitted opportunities for
// long-term storage. Failures are logged, never fatal to the cycle.
type OpportunityArchiver interface {
	ArchiveCycle(ctx context.Context, cycle int64, opps []Opportunity) error
}
