package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/polyarb/arbot/internal/domain"
)

// OrderPayload carries the five fields that are hashed and signed for every
// order leg.
type OrderPayload struct {
	MarketID     string
	OutcomeIndex int
	Price        float64
	Quantity     float64
	Buy          bool
}

// canonical returns the deterministic string representation of the payload:
// market id, outcome index, price, quantity, and buy flag concatenated in
// that fixed order with no delimiter. Floats use the shortest decimal form
// (strconv 'g', precision -1) and the flag is "true"/"false". Any
// reimplementation must reproduce this byte-for-byte for signatures to
// verify.
func (p OrderPayload) canonical() string {
	var b strings.Builder
	b.WriteString(p.MarketID)
	b.WriteString(strconv.Itoa(p.OutcomeIndex))
	b.WriteString(strconv.FormatFloat(p.Price, 'g', -1, 64))
	b.WriteString(strconv.FormatFloat(p.Quantity, 'g', -1, 64))
	b.WriteString(strconv.FormatBool(p.Buy))
	return b.String()
}

// Digest returns the Keccak-256 hash of the canonical payload string.
func (p OrderPayload) Digest() []byte {
	return ethcrypto.Keccak256([]byte(p.canonical()))
}

// Signer signs order payloads with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key (with
// or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// AddressHex returns the signer's address as a 0x-prefixed hex string.
func (s *Signer) AddressHex() string {
	return s.address.Hex()
}

// SignOrder hashes the payload and signs the digest, returning a hex-encoded
// 65-byte signature. It returns domain.ErrSignerUninitialized when no key is
// configured; a signing failure is fatal to the enclosing order and is never
// retried.
func (s *Signer) SignOrder(payload OrderPayload) (string, error) {
	if s == nil || s.privateKey == nil {
		return "", domain.ErrSignerUninitialized
	}

	sig, err := ethcrypto.Sign(payload.Digest(), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: %w: %v", domain.ErrSigningFailed, err)
	}

	// go-ethereum returns v in {0,1}; the venue expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}
