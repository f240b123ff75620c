package engine

import (
	"fmt"
	"math"
)

// PricingPolicy maps a matched bid/ask pair to a transaction price.
type PricingPolicy interface {
	Price(bid, ask float64) (float64, error)
}

// KPricing prices a match at k*bid + (1-k)*ask. k=0 gives the seller's ask,
// k=1 the buyer's bid.
type KPricing struct {
	k float64
}

func NewKPricing(k float64) (KPricing, error) {
	if math.IsNaN(k) || k < 0 || k > 1 {
		return KPricing{}, fmt.Errorf("%w: got %v", ErrInvalidK, k)
	}
	return KPricing{k: k}, nil
}

func (p KPricing) K() float64 { return p.k }

func (p KPricing) Price(bid, ask float64) (float64, error) {
	if bid < ask {
		return 0, fmt.Errorf("%w: bid %v, ask %v", ErrUnmatchablePrices, bid, ask)
	}
	price := p.k*bid + (1-p.k)*ask
	// Keep rounding from leaking outside the pair.
	return math.Min(bid, math.Max(ask, price)), nil
}

var _ PricingPolicy = KPricing{}
