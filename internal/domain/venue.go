package domain

import "context"

// Venue is the abstract trading platform consumed by the detection and
// execution engines. The HTTP implementation lives in platform/polymarket.
type Venue interface {
	// ListMarkets returns a page of active markets. A transient venue error
	// means "no data this cycle", never a fatal condition.
	ListMarkets(ctx context.Context, limit, offset int) ([]Market, error)

	// OrderBook returns the current book for a market. ErrNotFound when the
	// venue has no book for the id.
	OrderBook(ctx context.Context, marketID string) (OrderBook, error)

	// SubmitOrder submits a signed order payload and returns the
	// venue-assigned order id.
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)

	// CancelOrder cancels a resting order. Cancelling an already filled,
	// expired, or cancelled order is not an error.
	CancelOrder(ctx context.Context, orderID string) error
}
