package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/polyarb/arbot/internal/crypto"
	"github.com/polyarb/arbot/internal/domain"
)

// scriptedVenue records order traffic and fails submissions on demand.
type scriptedVenue struct {
	submits     []domain.OrderRequest
	cancels     []string
	failOnCall  int // 1-based submit call index to fail, 0 disables
	submitCalls int
}

func (v *scriptedVenue) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	return nil, nil
}

func (v *scriptedVenue) OrderBook(ctx context.Context, marketID string) (domain.OrderBook, error) {
	return domain.OrderBook{}, domain.ErrNotFound
}

func (v *scriptedVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (string, error) {
	v.submitCalls++
	if v.failOnCall == v.submitCalls {
		return "", errors.New("venue rejected order")
	}
	v.submits = append(v.submits, req)
	if req.Buy {
		return "ord_buy_1", nil
	}
	return "ord_sell_1", nil
}

func (v *scriptedVenue) CancelOrder(ctx context.Context, orderID string) error {
	v.cancels = append(v.cancels, orderID)
	return nil
}

// staticSigner returns a fixed signature for every payload.
type staticSigner struct{}

func (staticSigner) SignOrder(crypto.OrderPayload) (string, error) { return "0xsig", nil }
func (staticSigner) AddressHex() string                            { return "0xabc" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:          "m1_0_1_deadbeef",
		MarketID:    "m1",
		BuyOutcome:  0,
		SellOutcome: 1,
		BuyPrice:    0.40,
		SellPrice:   0.55,
		ProfitPct:   5.26,
		MaxSize:     250,
	}
}

func TestExecuteSimulatedAlwaysSucceeds(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, nil, nil, nil, Config{Simulated: true}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 100)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade == nil {
		t.Fatal("Execute returned nil trade in simulation mode")
	}
	if trade.Status != domain.TradeStatusSimulated {
		t.Fatalf("Status=%q want %q", trade.Status, domain.TradeStatusSimulated)
	}
	if got, want := trade.ProfitAmount, 100*(0.55-0.40); got != want {
		t.Fatalf("ProfitAmount=%v want %v", got, want)
	}
	if trade.Buy.ID != "sim_buy_m1_0_1_deadbeef" || trade.Sell.ID != "sim_sell_m1_0_1_deadbeef" {
		t.Fatalf("leg ids=(%q,%q) want sim_ prefixed", trade.Buy.ID, trade.Sell.ID)
	}
	if venue.submitCalls != 0 {
		t.Fatalf("submitCalls=%d want 0 (no network in simulation)", venue.submitCalls)
	}
}

func TestExecuteLiveTwoLegs(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade.Status != domain.TradeStatusExecuted {
		t.Fatalf("Status=%q want %q", trade.Status, domain.TradeStatusExecuted)
	}
	if len(venue.submits) != 2 {
		t.Fatalf("submits=%d want 2", len(venue.submits))
	}
	// Buy leg must be submitted before the sell leg.
	if !venue.submits[0].Buy || venue.submits[1].Buy {
		t.Fatalf("leg order=(buy=%v,buy=%v) want (true,false)", venue.submits[0].Buy, venue.submits[1].Buy)
	}
	if venue.submits[0].Signature != "0xsig" || venue.submits[0].Signer != "0xabc" {
		t.Fatalf("buy leg not signed: %+v", venue.submits[0])
	}
	if trade.Buy.ID != "ord_buy_1" || trade.Sell.ID != "ord_sell_1" {
		t.Fatalf("leg ids=(%q,%q) want venue-assigned", trade.Buy.ID, trade.Sell.ID)
	}
}

func TestExecuteLiveSellFailureRollsBackBuy(t *testing.T) {
	venue := &scriptedVenue{failOnCall: 2}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err == nil {
		t.Fatal("Execute succeeded, want error on sell-leg failure")
	}
	if trade != nil {
		t.Fatalf("trade=%+v want nil", trade)
	}
	if len(venue.cancels) != 1 {
		t.Fatalf("cancels=%d want exactly 1", len(venue.cancels))
	}
	if venue.cancels[0] != "ord_buy_1" {
		t.Fatalf("cancelled %q want %q", venue.cancels[0], "ord_buy_1")
	}
	if len(eng.Active()) != 0 {
		t.Fatal("failed execution must not register a trade")
	}
}

func TestExecuteLiveBuyFailureNoSellAttempt(t *testing.T) {
	venue := &scriptedVenue{failOnCall: 1}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	if _, err := eng.Execute(context.Background(), testOpportunity(), 50); err == nil {
		t.Fatal("Execute succeeded, want error on buy-leg failure")
	}
	if venue.submitCalls != 1 {
		t.Fatalf("submitCalls=%d want 1 (no sell attempt after buy failure)", venue.submitCalls)
	}
	if len(venue.cancels) != 0 {
		t.Fatalf("cancels=%d want 0", len(venue.cancels))
	}
}

func TestExecuteLiveWithoutSigner(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, nil, nil, nil, Config{}, discardLogger())

	_, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if !errors.Is(err, domain.ErrSignerUninitialized) {
		t.Fatalf("err=%v want ErrSignerUninitialized", err)
	}
	if venue.submitCalls != 0 {
		t.Fatalf("submitCalls=%d want 0", venue.submitCalls)
	}
}

func TestExecuteRejectsNonPositiveSize(t *testing.T) {
	eng := New(&scriptedVenue{}, nil, nil, nil, Config{Simulated: true}, discardLogger())
	if _, err := eng.Execute(context.Background(), testOpportunity(), 0); err == nil {
		t.Fatal("Execute accepted size 0")
	}
}

func TestCloseUnknownTrade(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, nil, nil, nil, Config{Simulated: true}, discardLogger())

	if eng.Close(context.Background(), "nope") {
		t.Fatal("Close returned true for unknown trade id")
	}
	if len(venue.cancels) != 0 {
		t.Fatalf("cancels=%d want 0 for unknown trade", len(venue.cancels))
	}
}

func TestCloseCancelsBothLegs(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !eng.Close(context.Background(), trade.ID) {
		t.Fatal("Close returned false for known trade")
	}
	if len(venue.cancels) != 2 {
		t.Fatalf("cancels=%d want 2", len(venue.cancels))
	}

	closed, ok := eng.Get(trade.ID)
	if !ok {
		t.Fatal("closed trade missing from the trade set")
	}
	if closed.Status != domain.TradeStatusClosed {
		t.Fatalf("Status=%q want %q", closed.Status, domain.TradeStatusClosed)
	}
	if closed.ClosedAt == nil {
		t.Fatal("ClosedAt is nil after Close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	eng.Close(context.Background(), trade.ID)
	if !eng.Close(context.Background(), trade.ID) {
		t.Fatal("second Close returned false")
	}
	if len(venue.cancels) != 2 {
		t.Fatalf("cancels=%d want 2 (second close must not re-cancel)", len(venue.cancels))
	}
}

// blockingCancelVenue stalls every cancel until released, to surface lock
// contention between Close and other engine calls.
type blockingCancelVenue struct {
	scriptedVenue
	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
}

func (v *blockingCancelVenue) CancelOrder(ctx context.Context, orderID string) error {
	v.enterOnce.Do(func() { close(v.entered) })
	<-v.release
	return v.scriptedVenue.CancelOrder(ctx, orderID)
}

func TestCloseDoesNotBlockOtherTrades(t *testing.T) {
	venue := &blockingCancelVenue{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	eng := New(venue, staticSigner{}, nil, nil, Config{}, discardLogger())

	first, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	closed := make(chan bool, 1)
	go func() { closed <- eng.Close(context.Background(), first.ID) }()
	<-venue.entered // buy-leg cancel is now hanging inside the venue

	second := testOpportunity()
	second.ID = "m2_0_1_cafef00d"
	second.MarketID = "m2"

	executed := make(chan error, 1)
	go func() {
		_, err := eng.Execute(context.Background(), second, 25)
		executed <- err
	}()

	select {
	case err := <-executed:
		if err != nil {
			t.Fatalf("Execute during in-flight Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute blocked behind an in-flight Close")
	}

	close(venue.release)
	if !<-closed {
		t.Fatal("Close returned false for known trade")
	}
	got, ok := eng.Get(first.ID)
	if !ok || got.Status != domain.TradeStatusClosed {
		t.Fatalf("trade=%+v want status %q", got, domain.TradeStatusClosed)
	}
}

func TestCloseSimulatedSkipsVenue(t *testing.T) {
	venue := &scriptedVenue{}
	eng := New(venue, nil, nil, nil, Config{Simulated: true}, discardLogger())

	trade, _ := eng.Execute(context.Background(), testOpportunity(), 10)
	if !eng.Close(context.Background(), trade.ID) {
		t.Fatal("Close returned false")
	}
	if len(venue.cancels) != 0 {
		t.Fatalf("cancels=%d want 0 (simulated legs were never placed)", len(venue.cancels))
	}
}

// stubQuotes is a fixed-quote cache for revalidation tests.
type stubQuotes struct {
	quotes map[string]domain.Quote
}

func (s *stubQuotes) SetQuote(ctx context.Context, q domain.Quote) error { return nil }

func (s *stubQuotes) GetQuote(ctx context.Context, tokenID string) (domain.Quote, error) {
	q, ok := s.quotes[tokenID]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	return q, nil
}

func tokenTable(t map[string]string) TokenResolver {
	return func(marketID string, outcome int) (string, bool) {
		id, ok := t[marketID+"/"+string(rune('0'+outcome))]
		return id, ok
	}
}

func TestRevalidationVetoesRepricedPair(t *testing.T) {
	venue := &scriptedVenue{}
	quotes := &stubQuotes{quotes: map[string]domain.Quote{
		"tok0": {TokenID: "tok0", BestBid: 0.48, BestAsk: 0.52}, // mid 0.50
		"tok1": {TokenID: "tok1", BestBid: 0.50, BestAsk: 0.54}, // mid 0.52
	}}
	resolve := tokenTable(map[string]string{"m1/0": "tok0", "m1/1": "tok1"})

	eng := New(venue, staticSigner{}, quotes, resolve, Config{RevalidateQuotes: true}, discardLogger())

	_, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err == nil {
		t.Fatal("Execute succeeded, want veto: live pair sum is 1.02")
	}
	if !strings.Contains(err.Error(), "repriced") {
		t.Fatalf("err=%v want repriced veto", err)
	}
	if venue.submitCalls != 0 {
		t.Fatalf("submitCalls=%d want 0 after veto", venue.submitCalls)
	}
}

func TestRevalidationMissingQuoteDoesNotBlock(t *testing.T) {
	venue := &scriptedVenue{}
	quotes := &stubQuotes{quotes: map[string]domain.Quote{}}
	resolve := tokenTable(map[string]string{"m1/0": "tok0", "m1/1": "tok1"})

	eng := New(venue, staticSigner{}, quotes, resolve, Config{RevalidateQuotes: true}, discardLogger())

	trade, err := eng.Execute(context.Background(), testOpportunity(), 50)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade == nil {
		t.Fatal("missing quotes must not veto execution")
	}
}
