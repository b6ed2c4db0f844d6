package domain

import "time"

// Market is an immutable per-cycle snapshot of a binary prediction market.
// Exactly two outcome tokens are supported; markets with any other shape are
// rejected at the venue boundary.
type Market struct {
	ID            string
	Question      string
	OutcomeTokens []string // positional: index 0 and 1 address the two outcomes
	Prices        []float64
	Liquidity     float64
	Volume        float64
	Active        bool
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

// Binary reports whether the market has exactly two outcome tokens.
func (m Market) Binary() bool {
	return len(m.OutcomeTokens) == 2
}
