// Package feed pumps live best bid/ask quotes from the venue websocket into
// the quote cache, where the execution engine reads them for pre-submission
// revalidation.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/polyarb/arbot/internal/domain"
	"github.com/polyarb/arbot/internal/platform/polymarket"
)

// writeTimeout bounds each cache write so a stalled Redis never backs up the
// websocket read loop.
const writeTimeout = 2 * time.Second

// QuoteFeed subscribes to book snapshots for a set of outcome tokens and
// writes the derived quotes into a domain.QuoteCache.
type QuoteFeed struct {
	wsURL  string
	cache  domain.QuoteCache
	logger *slog.Logger

	mu       sync.Mutex
	client   *polymarket.WSClient
	tokenIDs map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewQuoteFeed creates a feed writing into cache. Tokens are added later via
// Subscribe as the bot discovers markets.
func NewQuoteFeed(wsURL string, cache domain.QuoteCache, logger *slog.Logger) *QuoteFeed {
	return &QuoteFeed{
		wsURL:    wsURL,
		cache:    cache,
		logger:   logger.With(slog.String("component", "quote_feed")),
		tokenIDs: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Run connects and blocks until ctx is cancelled or Close is called. The
// underlying client handles reconnection and subscription replay.
func (f *QuoteFeed) Run(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL)
	client.OnQuote(f.storeQuote)

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.client = client
	f.mu.Unlock()
	defer client.Close()

	f.logger.Info("quote feed connected")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// Subscribe starts streaming quotes for the given outcome tokens. Tokens
// already subscribed are skipped.
func (f *QuoteFeed) Subscribe(ctx context.Context, tokenIDs []string) error {
	f.mu.Lock()
	client := f.client
	fresh := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if _, ok := f.tokenIDs[id]; ok {
			continue
		}
		f.tokenIDs[id] = struct{}{}
		fresh = append(fresh, id)
	}
	f.mu.Unlock()

	if client == nil || len(fresh) == 0 {
		return nil
	}

	if err := client.Subscribe(ctx, fresh); err != nil {
		return err
	}
	f.logger.Debug("subscribed to tokens", slog.Int("count", len(fresh)))
	return nil
}

// Close stops the feed.
func (f *QuoteFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

func (f *QuoteFeed) storeQuote(q domain.Quote) {
	if q.TokenID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := f.cache.SetQuote(ctx, q); err != nil {
		f.logger.Warn("caching quote",
			slog.String("token_id", q.TokenID),
			slog.String("error", err.Error()))
	}
}
