package detector

import (
	"strconv"

	"github.com/polyarb/arbot/internal/domain"
)

// ExtractPrices derives one representative price per outcome from an order
// book. For each outcome index it takes the maximum bid (default 0.0 when the
// bid side is empty) and the minimum ask (default 1.0 when the ask side is
// empty); the representative price is the bid/ask midpoint when a bid exists,
// else the best ask alone. The result is positionally aligned with the
// market's outcome list.
//
// Pure function over its inputs. Any non-numeric price in the book makes the
// whole extraction return nil, which callers treat as "skip this market" —
// never a partial price list.
func ExtractPrices(book domain.OrderBook, outcomeCount int) []float64 {
	if outcomeCount <= 0 {
		return nil
	}

	bestBids := make([]float64, outcomeCount)
	bestAsks := make([]float64, outcomeCount)
	hasAsk := make([]bool, outcomeCount)

	for _, e := range book.Bids {
		if e.OutcomeIndex < 0 || e.OutcomeIndex >= outcomeCount {
			continue
		}
		p, err := strconv.ParseFloat(e.Price, 64)
		if err != nil {
			return nil
		}
		if p > bestBids[e.OutcomeIndex] {
			bestBids[e.OutcomeIndex] = p
		}
	}

	for _, e := range book.Asks {
		if e.OutcomeIndex < 0 || e.OutcomeIndex >= outcomeCount {
			continue
		}
		p, err := strconv.ParseFloat(e.Price, 64)
		if err != nil {
			return nil
		}
		if !hasAsk[e.OutcomeIndex] || p < bestAsks[e.OutcomeIndex] {
			bestAsks[e.OutcomeIndex] = p
			hasAsk[e.OutcomeIndex] = true
		}
	}

	prices := make([]float64, outcomeCount)
	for i := 0; i < outcomeCount; i++ {
		ask := 1.0
		if hasAsk[i] {
			ask = bestAsks[i]
		}
		if bestBids[i] > 0 {
			prices[i] = (bestBids[i] + ask) / 2
		} else {
			prices[i] = ask
		}
	}

	return prices
}
