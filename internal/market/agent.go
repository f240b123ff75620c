package market

import (
	"auctionsim/internal/common"
	"auctionsim/internal/engine"
)

// View is the read-only face of the market handed to agents and listeners.
type View interface {
	Round() int
	MaxRounds() int
	State() State
	Quote() common.Quote
	Auctioneer() engine.Auctioneer
	// Outstanding is the unfilled quantity of an agent's live orders.
	Outstanding(id common.AgentID) uint64
}

// Agent is a trader driven by the market. The market never inspects agents
// beyond this interface.
type Agent interface {
	ID() common.AgentID
	// RequestOrder is called once per round while the agent is active. A nil
	// order means the agent passes.
	RequestOrder(view View) *common.Order
	NotifyTransaction(tx common.Transaction)
	IsActive() bool
}

// Resetter is implemented by agents that restore their state between days.
type Resetter interface {
	Reset()
}
