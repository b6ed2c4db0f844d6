// Package polymarket implements the Polymarket venue: market metadata via the
// Gamma API, order books and order lifecycle via the CLOB API, and live best
// bid/ask quotes via the CLOB websocket.
package polymarket

import (
	"context"
	"log/slog"
	"time"

	"github.com/polyarb/arbot/internal/domain"
)

// Client is the composite Polymarket venue, routing market listing to Gamma
// and books/orders to the CLOB. It implements domain.Venue.
type Client struct {
	gamma *GammaClient
	clob  *ClobClient
}

var _ domain.Venue = (*Client)(nil)

// Config holds the venue endpoints and the per-call HTTP timeout.
type Config struct {
	ClobHost    string
	GammaHost   string
	HTTPTimeout time.Duration
}

// NewClient creates the composite venue client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		gamma: NewGammaClient(cfg.GammaHost, cfg.HTTPTimeout, logger),
		clob:  NewClobClient(cfg.ClobHost, cfg.HTTPTimeout, logger),
	}
}

func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return c.gamma.ListMarkets(ctx, limit, offset)
}

func (c *Client) OrderBook(ctx context.Context, marketID string) (domain.OrderBook, error) {
	return c.clob.OrderBook(ctx, marketID)
}

func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	return c.clob.SubmitOrder(ctx, req)
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.clob.CancelOrder(ctx, orderID)
}
