package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polyarb/arbot/internal/domain"
)

// GammaClient fetches market metadata from the Gamma API.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGammaClient creates a Gamma API client.
func NewGammaClient(baseURL string, timeout time.Duration, logger *slog.Logger) *GammaClient {
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "gamma_client")),
	}
}

// ListMarkets fetches a page of active markets. Markets whose shape cannot be
// decoded into a binary market are dropped with a debug log; the page is
// returned without them.
func (c *GammaClient) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("active", "true")

	endpoint := fmt.Sprintf("%s/markets?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("gamma: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gamma: listing markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gamma: listing markets: status %d: %s", resp.StatusCode, body)
	}

	var apiMarkets []APIMarket
	if err := json.NewDecoder(resp.Body).Decode(&apiMarkets); err != nil {
		return nil, fmt.Errorf("gamma: decoding markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		m, err := apiMarkets[i].ToDomainMarket()
		if err != nil {
			c.logger.Debug("dropping market", slog.String("error", err.Error()))
			continue
		}
		markets = append(markets, m)
	}

	c.logger.Debug("listed markets",
		slog.Int("fetched", len(apiMarkets)),
		slog.Int("usable", len(markets)),
		slog.Int("offset", offset))

	return markets, nil
}
