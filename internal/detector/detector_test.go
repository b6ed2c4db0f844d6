package detector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/polyarb/arbot/internal/domain"
)

// fakeVenue serves canned order books keyed by market id.
type fakeVenue struct {
	books map[string]domain.OrderBook
	errs  map[string]error
}

func (f *fakeVenue) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeVenue) OrderBook(ctx context.Context, marketID string) (domain.OrderBook, error) {
	if err, ok := f.errs[marketID]; ok {
		return domain.OrderBook{}, err
	}
	book, ok := f.books[marketID]
	if !ok {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	return book, nil
}

func (f *fakeVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeVenue) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func binaryMarket(id string) domain.Market {
	return domain.Market{ID: id, OutcomeTokens: []string{"YES", "NO"}, Active: true}
}

func TestCheckPairNoOpportunityAtOrAboveOne(t *testing.T) {
	for _, prices := range [][]float64{{0.5, 0.5}, {0.6, 0.6}, {0.3, 0.7}} {
		if _, ok := checkPair("m1", prices, 0, 1, 0.0); ok {
			t.Fatalf("checkPair(%v) emitted an opportunity, want none", prices)
		}
	}
}

func TestCheckPairProfitAndLegs(t *testing.T) {
	prices := []float64{0.55, 0.40}
	opp, ok := checkPair("m1", prices, 0, 1, 0.5)
	if !ok {
		t.Fatal("checkPair emitted nothing, want an opportunity")
	}

	wantProfit := ((1.0 - 0.95) / 0.95) * 100
	if !closeEnough(opp.ProfitPct, wantProfit) {
		t.Fatalf("ProfitPct=%v want %v", opp.ProfitPct, wantProfit)
	}
	if opp.BuyOutcome != 1 || opp.SellOutcome != 0 {
		t.Fatalf("legs=(%d,%d) want (1,0)", opp.BuyOutcome, opp.SellOutcome)
	}
	if opp.BuyPrice != 0.40 || opp.SellPrice != 0.55 {
		t.Fatalf("prices=(%v,%v) want (0.40,0.55)", opp.BuyPrice, opp.SellPrice)
	}
	if !closeEnough(opp.MaxSize, 250) {
		t.Fatalf("MaxSize=%v want 250", opp.MaxSize)
	}
}

func TestCheckPairThresholdBoundary(t *testing.T) {
	// sum=0.8 gives exactly 25% profit; at-threshold must be emitted.
	prices := []float64{0.4, 0.4}
	if _, ok := checkPair("m1", prices, 0, 1, 25.0); !ok {
		t.Fatal("opportunity at exact threshold was not emitted")
	}
	if _, ok := checkPair("m1", prices, 0, 1, 25.0001); ok {
		t.Fatal("opportunity below threshold was emitted")
	}
}

func TestCheckPairTieBuysFirstOutcome(t *testing.T) {
	opp, ok := checkPair("m1", []float64{0.3, 0.3}, 0, 1, 0.0)
	if !ok {
		t.Fatal("checkPair emitted nothing")
	}
	if opp.BuyOutcome != 0 || opp.SellOutcome != 1 {
		t.Fatalf("legs=(%d,%d) want (0,1)", opp.BuyOutcome, opp.SellOutcome)
	}
}

func TestCheckPairMaxSizeCap(t *testing.T) {
	// 100/0.05 = 2000, capped at 1000.
	opp, ok := checkPair("m1", []float64{0.05, 0.5}, 0, 1, 0.0)
	if !ok {
		t.Fatal("checkPair emitted nothing")
	}
	if !closeEnough(opp.MaxSize, 1000) {
		t.Fatalf("MaxSize=%v want 1000", opp.MaxSize)
	}
}

func TestCheckPairZeroPriceDegenerate(t *testing.T) {
	opp, ok := checkPair("m1", []float64{0, 0.5}, 0, 1, 0.0)
	if !ok {
		t.Fatal("checkPair emitted nothing")
	}
	if !closeEnough(opp.MaxSize, 100) {
		t.Fatalf("MaxSize=%v want 100", opp.MaxSize)
	}
}

func TestCheckPairUniqueIDs(t *testing.T) {
	prices := []float64{0.4, 0.4}
	a, _ := checkPair("m1", prices, 0, 1, 0.0)
	b, _ := checkPair("m1", prices, 0, 1, 0.0)
	if a.ID == b.ID {
		t.Fatalf("two detections produced the same id %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, "m1_0_1_") {
		t.Fatalf("id=%q want prefix m1_0_1_", a.ID)
	}
}

func TestDetectEndToEnd(t *testing.T) {
	venue := &fakeVenue{
		books: map[string]domain.OrderBook{
			"m1": {
				MarketID: "m1",
				Bids: []domain.BookEntry{
					{OutcomeIndex: 0, Price: "0.38", Size: "100"},
					{OutcomeIndex: 1, Price: "0.53", Size: "100"},
				},
				Asks: []domain.BookEntry{
					{OutcomeIndex: 0, Price: "0.42", Size: "100"},
					{OutcomeIndex: 1, Price: "0.57", Size: "100"},
				},
			},
		},
	}

	d := New(venue, nil, Config{MinProfitPct: 0.5}, discardLogger())
	opps := d.Detect(context.Background(), []domain.Market{binaryMarket("m1")})
	if len(opps) != 1 {
		t.Fatalf("len(opps)=%d want 1", len(opps))
	}

	opp := opps[0]
	if opp.BuyOutcome != 0 || opp.SellOutcome != 1 {
		t.Fatalf("legs=(%d,%d) want (0,1)", opp.BuyOutcome, opp.SellOutcome)
	}
	if !closeEnough(opp.BuyPrice, 0.40) || !closeEnough(opp.SellPrice, 0.55) {
		t.Fatalf("prices=(%v,%v) want (0.40,0.55)", opp.BuyPrice, opp.SellPrice)
	}
	wantProfit := ((1.0 - 0.95) / 0.95) * 100
	if !closeEnough(opp.ProfitPct, wantProfit) {
		t.Fatalf("ProfitPct=%v want %v", opp.ProfitPct, wantProfit)
	}
	if !closeEnough(opp.MaxSize, 250) {
		t.Fatalf("MaxSize=%v want 250", opp.MaxSize)
	}
}

func TestDetectIsolatesMarketFailures(t *testing.T) {
	venue := &fakeVenue{
		books: map[string]domain.OrderBook{
			"good": {
				MarketID: "good",
				Asks: []domain.BookEntry{
					{OutcomeIndex: 0, Price: "0.3", Size: "10"},
					{OutcomeIndex: 1, Price: "0.3", Size: "10"},
				},
			},
		},
		errs: map[string]error{
			"bad": errors.New("venue timeout"),
		},
	}

	d := New(venue, nil, Config{MinProfitPct: 0.5}, discardLogger())
	markets := []domain.Market{binaryMarket("bad"), binaryMarket("good")}

	opps := d.Detect(context.Background(), markets)
	if len(opps) != 1 {
		t.Fatalf("len(opps)=%d want 1 (bad market must not abort the cycle)", len(opps))
	}
	if opps[0].MarketID != "good" {
		t.Fatalf("MarketID=%q want %q", opps[0].MarketID, "good")
	}
}

func TestDetectSkipsNonBinaryMarket(t *testing.T) {
	venue := &fakeVenue{books: map[string]domain.OrderBook{}}
	d := New(venue, nil, Config{MinProfitPct: 0.5}, discardLogger())

	opps := d.Detect(context.Background(), []domain.Market{
		{ID: "single", OutcomeTokens: []string{"only"}},
	})
	if len(opps) != 0 {
		t.Fatalf("len(opps)=%d want 0", len(opps))
	}
}

func TestSelectTop(t *testing.T) {
	opps := []domain.Opportunity{
		{ID: "a", ProfitPct: 1.0},
		{ID: "b", ProfitPct: 5.0},
		{ID: "c", ProfitPct: 3.0},
		{ID: "d", ProfitPct: 5.0},
	}

	top := SelectTop(opps, 3)
	if len(top) != 3 {
		t.Fatalf("len(top)=%d want 3", len(top))
	}
	// Stable sort: b before d on the 5.0 tie.
	if top[0].ID != "b" || top[1].ID != "d" || top[2].ID != "c" {
		t.Fatalf("order=%s,%s,%s want b,d,c", top[0].ID, top[1].ID, top[2].ID)
	}

	// Input must not be reordered.
	if opps[0].ID != "a" {
		t.Fatalf("input slice mutated: opps[0]=%q", opps[0].ID)
	}
}
