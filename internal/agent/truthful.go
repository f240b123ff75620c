package agent

import (
	"auctionsim/internal/common"
	"auctionsim/internal/market"
)

// Truthful shouts its valuation for whatever entitlement it has not yet
// traded or committed.
type Truthful struct {
	Trader
}

func NewTruthful(id common.AgentID, side common.Side, valuation float64, entitlement uint64) *Truthful {
	return &Truthful{Trader: newTrader(id, side, valuation, entitlement)}
}

func (a *Truthful) RequestOrder(view market.View) *common.Order {
	quantity := a.available(view)
	if quantity == 0 {
		return nil
	}
	return common.NewOrder(a.id, a.side, a.valuation, quantity)
}

var (
	_ market.Agent    = (*Truthful)(nil)
	_ market.Resetter = (*Truthful)(nil)
)
