package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/polyarb/arbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Gamma API. String fields
// holding JSON-encoded arrays ("outcomes", "outcomePrices") are decoded in
// ToDomainMarket, which is the single wire-shape validation boundary.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: "[\"0.5\",\"0.5\"]"
	Liquidity     string   `json:"liquidity"`
	Volume        string   `json:"volume"`
	Active        flexBool `json:"active"`
	CreatedAt     string   `json:"created_at"`
	EndDateISO    string   `json:"end_date_iso"`
}

// ToDomainMarket converts an APIMarket into a domain.Market. It returns an
// error for any market whose shape this system cannot analyze: missing id,
// not exactly two outcomes, or undecodable embedded arrays. Callers drop
// such markets and continue.
func (m *APIMarket) ToDomainMarket() (domain.Market, error) {
	if m.ID == "" {
		return domain.Market{}, fmt.Errorf("polymarket: market without id")
	}

	var outcomes []string
	if m.Outcomes != "" {
		if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
			return domain.Market{}, fmt.Errorf("polymarket: market %s: decode outcomes: %w", m.ID, err)
		}
	}
	if len(outcomes) != 2 {
		return domain.Market{}, fmt.Errorf("polymarket: market %s: expected 2 outcomes, got %d", m.ID, len(outcomes))
	}

	var priceStrs []string
	if m.OutcomePrices != "" {
		if err := json.Unmarshal([]byte(m.OutcomePrices), &priceStrs); err != nil {
			return domain.Market{}, fmt.Errorf("polymarket: market %s: decode outcome prices: %w", m.ID, err)
		}
	}
	prices := make([]float64, 0, len(priceStrs))
	for _, ps := range priceStrs {
		p, err := strconv.ParseFloat(ps, 64)
		if err != nil {
			return domain.Market{}, fmt.Errorf("polymarket: market %s: outcome price %q: %w", m.ID, ps, err)
		}
		prices = append(prices, p)
	}

	out := domain.Market{
		ID:            m.ID,
		Question:      m.Question,
		OutcomeTokens: outcomes,
		Prices:        prices,
		Active:        bool(m.Active),
	}

	if v, err := strconv.ParseFloat(m.Liquidity, 64); err == nil {
		out.Liquidity = v
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		out.Volume = v
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		out.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
		out.ExpiresAt = &t
	}

	return out, nil
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBookLevel is one resting level in a CLOB order book response. Prices and
// sizes are decimal strings on the wire; parsing is deferred to the price
// extractor, which owns the malformed-entry policy.
type APIBookLevel struct {
	OutcomeID int    `json:"outcome_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
}

// APIOrderBook is the CLOB order book response for one market.
type APIOrderBook struct {
	MarketID string         `json:"market"`
	Bids     []APIBookLevel `json:"bids"`
	Asks     []APIBookLevel `json:"asks"`
}

// ToDomainOrderBook converts the wire book into a domain.OrderBook.
func (b *APIOrderBook) ToDomainOrderBook(marketID string) domain.OrderBook {
	out := domain.OrderBook{
		MarketID: marketID,
		Bids:     make([]domain.BookEntry, 0, len(b.Bids)),
		Asks:     make([]domain.BookEntry, 0, len(b.Asks)),
	}
	for _, lvl := range b.Bids {
		out.Bids = append(out.Bids, domain.BookEntry{
			OutcomeIndex: lvl.OutcomeID,
			Price:        lvl.Price,
			Size:         lvl.Size,
		})
	}
	for _, lvl := range b.Asks {
		out.Asks = append(out.Asks, domain.BookEntry{
			OutcomeIndex: lvl.OutcomeID,
			Price:        lvl.Price,
			Size:         lvl.Size,
		})
	}
	return out
}

// APIOrderResult is the response from submitting an order to the CLOB.
type APIOrderResult struct {
	ID       string `json:"id"`
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}
