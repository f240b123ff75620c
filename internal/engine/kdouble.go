package engine

import (
	"auctionsim/internal/common"
)

// KDouble is a periodic double auction with discriminatory pricing: every
// match is priced on its own pair.
type KDouble struct {
	core
	pricing PricingPolicy
}

func NewKDouble(pricing PricingPolicy, opts Options) *KDouble {
	return &KDouble{
		core:    newCore(KindKDouble, opts),
		pricing: pricing,
	}
}

func (a *KDouble) NewOrder(order *common.Order) error {
	return a.accept(order, nil)
}

func (a *KDouble) Clear(round int) ([]common.Transaction, error) {
	defer a.GenerateQuote()

	matches, err := a.matchTop()
	if err != nil {
		return nil, err
	}
	return a.transact(round, matches, a.price)
}

func (a *KDouble) price(m match) (float64, error) {
	return a.pricing.Price(m.bid.Price, m.ask.Price)
}

func (a *KDouble) GenerateQuote() common.Quote {
	a.quote = bestQuote(a.book)
	return a.quote
}

func (a *KDouble) Reset() error {
	a.reset()
	return nil
}

var _ Auctioneer = (*KDouble)(nil)

// ContinuousDouble is the generic double-sided auction: discriminatory
// pricing, cleared after every accepted order.
type ContinuousDouble struct {
	KDouble
}

func NewContinuousDouble(pricing PricingPolicy, opts Options) *ContinuousDouble {
	a := &ContinuousDouble{KDouble: *NewKDouble(pricing, opts)}
	a.kind = KindContinuous
	return a
}

func (a *ContinuousDouble) Continuous() bool { return true }

var (
	_ Auctioneer = (*ContinuousDouble)(nil)
	_ Continuous = (*ContinuousDouble)(nil)
)
