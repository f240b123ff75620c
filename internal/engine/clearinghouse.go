package engine

import (
	"auctionsim/internal/common"
)

// ClearingHouse is a periodic double auction. Orders accumulate during the
// round and every match made by Clear settles at one uniform price.
type ClearingHouse struct {
	core
	pricing PricingPolicy
}

func NewClearingHouse(pricing PricingPolicy, opts Options) *ClearingHouse {
	return &ClearingHouse{
		core:    newCore(KindClearingHouse, opts),
		pricing: pricing,
	}
}

func (a *ClearingHouse) NewOrder(order *common.Order) error {
	return a.accept(order, nil)
}

// Clear matches while the book crosses, then prices the whole batch from the
// marginal pair: the lowest matched bid and the highest matched ask. That
// price lies inside every matched pair's [ask, bid] range.
func (a *ClearingHouse) Clear(round int) ([]common.Transaction, error) {
	defer a.GenerateQuote()

	matches, err := a.matchTop()
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	marginal := matches[len(matches)-1]
	uniform, err := a.pricing.Price(marginal.bid.Price, marginal.ask.Price)
	return a.transact(round, matches, func(match) (float64, error) {
		return uniform, err
	})
}

func (a *ClearingHouse) GenerateQuote() common.Quote {
	a.quote = bestQuote(a.book)
	return a.quote
}

func (a *ClearingHouse) Reset() error {
	a.reset()
	return nil
}

var _ Auctioneer = (*ClearingHouse)(nil)
