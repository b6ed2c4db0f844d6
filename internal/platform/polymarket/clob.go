package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/polyarb/arbot/internal/domain"
)

// ClobClient talks to the CLOB REST API: order books, order submission and
// cancellation.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClobClient creates a CLOB API client.
func NewClobClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ClobClient {
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "clob_client")),
	}
}

// OrderBook fetches the order book for one market. A 404 maps to
// domain.ErrNotFound so callers can skip delisted markets.
func (c *ClobClient) OrderBook(ctx context.Context, marketID string) (domain.OrderBook, error) {
	endpoint := fmt.Sprintf("%s/order-book/%s", c.baseURL, url.PathEscape(marketID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob: fetching book for %s: %w", marketID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.OrderBook{}, fmt.Errorf("clob: book for %s: %w", marketID, domain.ErrNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.OrderBook{}, fmt.Errorf("clob: fetching book for %s: status %d: %s", marketID, resp.StatusCode, body)
	}

	var apiBook APIOrderBook
	if err := json.NewDecoder(resp.Body).Decode(&apiBook); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob: decoding book for %s: %w", marketID, err)
	}

	return apiBook.ToDomainOrderBook(marketID), nil
}

// submitOrderBody is the JSON payload for order creation.
type submitOrderBody struct {
	MarketID     string  `json:"market"`
	OutcomeIndex int     `json:"outcome_id"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	Side         string  `json:"side"`
	Signer       string  `json:"signer,omitempty"`
	Signature    string  `json:"signature,omitempty"`
}

// SubmitOrder posts a signed order to the venue and returns the venue-assigned
// order id. A response without an id is an error even on HTTP 200.
func (c *ClobClient) SubmitOrder(ctx context.Context, r domain.OrderRequest) (string, error) {
	side := "SELL"
	if r.Buy {
		side = "BUY"
	}

	body, err := json.Marshal(submitOrderBody{
		MarketID:     r.MarketID,
		OutcomeIndex: r.OutcomeIndex,
		Price:        r.Price,
		Size:         r.Quantity,
		Side:         side,
		Signer:       r.Signer,
		Signature:    r.Signature,
	})
	if err != nil {
		return "", fmt.Errorf("clob: encoding order: %w", err)
	}

	endpoint := c.baseURL + "/create-order"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("clob: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("clob: submitting order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("clob: submitting order: status %d: %s", resp.StatusCode, respBody)
	}

	var result APIOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("clob: decoding order response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("clob: order accepted without id (errorMsg=%q)", result.ErrorMsg)
	}

	c.logger.Debug("order submitted",
		slog.String("order_id", result.ID),
		slog.String("market_id", r.MarketID),
		slog.String("side", side))

	return result.ID, nil
}

// CancelOrder cancels a resting order. A 404 means the order is already gone,
// which is success for our purposes; cancellation must stay idempotent.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"order_id": orderID})
	if err != nil {
		return fmt.Errorf("clob: encoding cancel: %w", err)
	}

	endpoint := c.baseURL + "/cancel-order"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("clob: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clob: cancelling order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return nil
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("clob: cancelling order %s: status %d: %s", orderID, resp.StatusCode, respBody)
	}
}
