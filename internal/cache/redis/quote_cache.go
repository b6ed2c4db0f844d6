package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polyarb/arbot/internal/domain"
)

// quoteTTL expires stale quotes: a quote older than this is worse than no
// quote for the pre-submission revalidation check.
const quoteTTL = 30 * time.Second

// QuoteCache implements domain.QuoteCache using Redis hashes. Each token's
// best bid/ask lives in a hash with fields "bid" and "ask".
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.rdb}
}

var _ domain.QuoteCache = (*QuoteCache)(nil)

func quoteKey(tokenID string) string {
	return key("quote", tokenID)
}

// SetQuote stores the latest best bid/ask for a token with a short TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	key := quoteKey(q.TokenID)
	fields := map[string]interface{}{
		"bid": strconv.FormatFloat(q.BestBid, 'f', -1, 64),
		"ask": strconv.FormatFloat(q.BestAsk, 'f', -1, 64),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.TokenID, err)
	}
	return nil
}

// GetQuote retrieves the latest best bid/ask for a token. Returns
// domain.ErrNotFound when no fresh quote exists.
func (qc *QuoteCache) GetQuote(ctx context.Context, tokenID string) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(tokenID)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", tokenID, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}

	bid, err := strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse bid for %s: %w", tokenID, err)
	}
	ask, err := strconv.ParseFloat(vals["ask"], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ask for %s: %w", tokenID, err)
	}

	return domain.Quote{TokenID: tokenID, BestBid: bid, BestAsk: ask}, nil
}
