package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/polyarb/arbot/internal/domain"
)

// Well-known throwaway key (hardhat account #0). Never fund it.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestCanonicalPayload(t *testing.T) {
	p := OrderPayload{
		MarketID:     "m1",
		OutcomeIndex: 1,
		Price:        0.55,
		Quantity:     250,
		Buy:          false,
	}

	// Field order and formatting are part of the signature contract.
	if got, want := p.canonical(), "m110.55250false"; got != want {
		t.Fatalf("canonical()=%q want %q", got, want)
	}
}

func TestDigestDeterministic(t *testing.T) {
	p := OrderPayload{MarketID: "m1", OutcomeIndex: 0, Price: 0.4, Quantity: 100, Buy: true}

	d1 := p.Digest()
	d2 := p.Digest()
	if len(d1) != 32 {
		t.Fatalf("digest length=%d want 32", len(d1))
	}
	if string(d1) != string(d2) {
		t.Fatal("same payload produced different digests")
	}

	p.Buy = false
	if string(p.Digest()) == string(d1) {
		t.Fatal("flipping the side did not change the digest")
	}
}

func TestSignOrder(t *testing.T) {
	signer, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	p := OrderPayload{MarketID: "m1", OutcomeIndex: 0, Price: 0.4, Quantity: 100, Buy: true}
	sig, err := signer.SignOrder(p)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}

	if !strings.HasPrefix(sig, "0x") {
		t.Fatalf("signature %q missing 0x prefix", sig)
	}
	// 65 bytes hex-encoded plus the prefix.
	if len(sig) != 2+130 {
		t.Fatalf("signature length=%d want %d", len(sig), 2+130)
	}
	// Recovery byte must be normalized into {27, 28}: the last hex byte
	// is 0x1b or 0x1c.
	v := sig[len(sig)-2:]
	if v != "1b" && v != "1c" {
		t.Fatalf("recovery byte=%q want 1b or 1c", v)
	}

	// Signing is deterministic for a fixed key and payload.
	sig2, err := signer.SignOrder(p)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}
	if sig != sig2 {
		t.Fatal("same payload signed twice produced different signatures")
	}
}

func TestSignOrderAccepts0xPrefix(t *testing.T) {
	a, err := NewSigner(testKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	b, err := NewSigner("0x" + testKey)
	if err != nil {
		t.Fatalf("NewSigner with prefix: %v", err)
	}
	if a.AddressHex() != b.AddressHex() {
		t.Fatalf("addresses differ: %s vs %s", a.AddressHex(), b.AddressHex())
	}
}

func TestSignOrderUninitialized(t *testing.T) {
	var signer *Signer
	_, err := signer.SignOrder(OrderPayload{MarketID: "m1"})
	if !errors.Is(err, domain.ErrSignerUninitialized) {
		t.Fatalf("err=%v want ErrSignerUninitialized", err)
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner("not-hex"); err == nil {
		t.Fatal("NewSigner accepted invalid key")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKey {
		t.Fatalf("round trip=%q want %q", got, testKey)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("DecryptKey accepted the wrong password")
	}
}
