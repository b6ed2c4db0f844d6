package domain

// BookEntry is a single resting order book level, tagged with the outcome it
// belongs to. Price and Size are the venue's decimal strings; the price
// extractor parses them and owns the malformed-entry policy.
type BookEntry struct {
	OutcomeIndex int
	Price        string
	Size         string
}

// OrderBook is the per-market set of bids and asks. Read-only input to price
// extraction.
type OrderBook struct {
	MarketID string
	Bids     []BookEntry
	Asks     []BookEntry
}

// Quote is the freshest best bid/ask pair for one outcome token, as published
// by the ws feed and consumed by the pre-submission revalidation step.
type Quote struct {
	TokenID string
	BestBid float64
	BestAsk float64
}

// Mid returns the quote midpoint when a bid exists, else the best ask. The
// same convention the price extractor applies to raw books.
func (q Quote) Mid() float64 {
	if q.BestBid > 0 {
		return (q.BestBid + q.BestAsk) / 2
	}
	return q.BestAsk
}
