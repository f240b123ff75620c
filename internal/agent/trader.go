package agent

import (
	"auctionsim/internal/common"
	"auctionsim/internal/market"
)

// Trader is the state shared by the reference agents: a private valuation
// per unit and a trade entitlement after which the agent goes inactive.
type Trader struct {
	id          common.AgentID
	side        common.Side
	valuation   float64
	entitlement uint64
	traded      uint64
	profit      float64
}

func newTrader(id common.AgentID, side common.Side, valuation float64, entitlement uint64) Trader {
	return Trader{id: id, side: side, valuation: valuation, entitlement: entitlement}
}

func (t *Trader) ID() common.AgentID  { return t.id }
func (t *Trader) Side() common.Side   { return t.side }
func (t *Trader) Valuation() float64  { return t.valuation }
func (t *Trader) Entitlement() uint64 { return t.entitlement }
func (t *Trader) Traded() uint64      { return t.traded }
func (t *Trader) Profit() float64     { return t.profit }
func (t *Trader) IsActive() bool      { return t.traded < t.entitlement }

func (t *Trader) remaining() uint64 {
	if t.traded >= t.entitlement {
		return 0
	}
	return t.entitlement - t.traded
}

// available is what the trader may still commit: its entitlement less what it
// traded and what still rests unfilled in the book.
func (t *Trader) available(view market.View) uint64 {
	left := t.remaining()
	if view == nil {
		return left
	}
	if outstanding := view.Outstanding(t.id); outstanding < left {
		return left - outstanding
	}
	return 0
}

// NotifyTransaction books the trade against the entitlement and the profit.
func (t *Trader) NotifyTransaction(tx common.Transaction) {
	var surplus float64
	switch t.id {
	case tx.Buyer():
		surplus = t.valuation - tx.Price
	case tx.Seller():
		surplus = tx.Price - t.valuation
	default:
		return
	}
	t.traded += tx.Quantity
	t.profit += surplus * float64(tx.Quantity)
}

// Reset restores the entitlement for a new day. Profit carries over.
func (t *Trader) Reset() { t.traded = 0 }
