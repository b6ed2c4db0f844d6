package bot

import (
	"fmt"
	"sync"

	"github.com/polyarb/arbot/internal/domain"
)

// TokenRegistry maps (market id, outcome index) to the outcome token id from
// the latest market listing. Written by the polling loop each cycle, read by
// the execution engine's quote revalidation and by the quote feed
// subscription.
type TokenRegistry struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewTokenRegistry creates an empty registry.
func NewTokenRegistry() *TokenRegistry {
	return &TokenRegistry{tokens: make(map[string]string)}
}

func registryKey(marketID string, outcome int) string {
	return fmt.Sprintf("%s/%d", marketID, outcome)
}

// Update records the outcome tokens of every listed market and returns the
// token ids that were not known before.
func (r *TokenRegistry) Update(markets []domain.Market) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fresh []string
	for _, m := range markets {
		for i, tok := range m.OutcomeTokens {
			key := registryKey(m.ID, i)
			if r.tokens[key] == tok {
				continue
			}
			r.tokens[key] = tok
			fresh = append(fresh, tok)
		}
	}
	return fresh
}

// Resolve returns the token id for a market outcome.
func (r *TokenRegistry) Resolve(marketID string, outcome int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[registryKey(marketID, outcome)]
	return tok, ok
}
