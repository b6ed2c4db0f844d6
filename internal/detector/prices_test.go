package detector

import (
	"testing"

	"github.com/polyarb/arbot/internal/domain"
)

func TestExtractPricesMidpoint(t *testing.T) {
	book := domain.OrderBook{
		MarketID: "m1",
		Bids: []domain.BookEntry{
			{OutcomeIndex: 0, Price: "0.38", Size: "100"},
			{OutcomeIndex: 0, Price: "0.35", Size: "50"},
			{OutcomeIndex: 1, Price: "0.53", Size: "80"},
		},
		Asks: []domain.BookEntry{
			{OutcomeIndex: 0, Price: "0.42", Size: "100"},
			{OutcomeIndex: 0, Price: "0.45", Size: "40"},
			{OutcomeIndex: 1, Price: "0.57", Size: "60"},
		},
	}

	prices := ExtractPrices(book, 2)
	if len(prices) != 2 {
		t.Fatalf("len(prices)=%d want 2", len(prices))
	}
	if got, want := prices[0], 0.40; !closeEnough(got, want) {
		t.Fatalf("prices[0]=%v want %v", got, want)
	}
	if got, want := prices[1], 0.55; !closeEnough(got, want) {
		t.Fatalf("prices[1]=%v want %v", got, want)
	}
}

func TestExtractPricesEmptySides(t *testing.T) {
	// No bids and no asks: default ask 1.0, no midpoint computed.
	prices := ExtractPrices(domain.OrderBook{MarketID: "m1"}, 2)
	if len(prices) != 2 {
		t.Fatalf("len(prices)=%d want 2", len(prices))
	}
	for i, p := range prices {
		if p != 1.0 {
			t.Fatalf("prices[%d]=%v want 1.0", i, p)
		}
	}
}

func TestExtractPricesOnlyBids(t *testing.T) {
	// Only bids: midpoint of the best bid and the default ask of 1.0.
	book := domain.OrderBook{
		MarketID: "m1",
		Bids:     []domain.BookEntry{{OutcomeIndex: 0, Price: "0.4", Size: "10"}},
	}

	prices := ExtractPrices(book, 1)
	if got, want := prices[0], 0.7; !closeEnough(got, want) {
		t.Fatalf("prices[0]=%v want %v", got, want)
	}
}

func TestExtractPricesOnlyAsks(t *testing.T) {
	book := domain.OrderBook{
		MarketID: "m1",
		Asks: []domain.BookEntry{
			{OutcomeIndex: 0, Price: "0.6", Size: "10"},
			{OutcomeIndex: 0, Price: "0.55", Size: "5"},
		},
	}

	prices := ExtractPrices(book, 1)
	if got, want := prices[0], 0.55; !closeEnough(got, want) {
		t.Fatalf("prices[0]=%v want %v", got, want)
	}
}

func TestExtractPricesMalformedEntry(t *testing.T) {
	book := domain.OrderBook{
		MarketID: "m1",
		Bids: []domain.BookEntry{
			{OutcomeIndex: 0, Price: "0.4", Size: "10"},
			{OutcomeIndex: 1, Price: "not-a-number", Size: "10"},
		},
	}

	// One bad entry poisons the whole extraction: never a partial list.
	if prices := ExtractPrices(book, 2); prices != nil {
		t.Fatalf("ExtractPrices=%v want nil", prices)
	}
}

func TestExtractPricesIgnoresOutOfRangeOutcome(t *testing.T) {
	book := domain.OrderBook{
		MarketID: "m1",
		Bids: []domain.BookEntry{
			{OutcomeIndex: 5, Price: "0.9", Size: "10"},
			{OutcomeIndex: -1, Price: "0.9", Size: "10"},
		},
	}

	prices := ExtractPrices(book, 2)
	if len(prices) != 2 {
		t.Fatalf("len(prices)=%d want 2", len(prices))
	}
	for i, p := range prices {
		if p != 1.0 {
			t.Fatalf("prices[%d]=%v want 1.0", i, p)
		}
	}
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
