package market

import "auctionsim/internal/common"

// Event is published synchronously to every listener at fixed points of the
// round protocol.
type Event interface {
	isEvent()
}

type MarketOpened struct {
	Round int
}

// OrderReceived fires for every submitted order. Err is the rejection reason,
// nil when the order was accepted.
type OrderReceived struct {
	Round int
	Order *common.Order
	Err   error
}

// OrderPlaced follows OrderReceived only for accepted orders.
type OrderPlaced struct {
	Round int
	Order *common.Order
}

type RoundClosing struct {
	Round int
}

type TransactionExecuted struct {
	Transaction common.Transaction
}

type RoundClosed struct {
	Round int
}

type MarketClosed struct {
	Round int
}

func (MarketOpened) isEvent()        {}
func (OrderReceived) isEvent()       {}
func (OrderPlaced) isEvent()         {}
func (RoundClosing) isEvent()        {}
func (TransactionExecuted) isEvent() {}
func (RoundClosed) isEvent()         {}
func (MarketClosed) isEvent()        {}

// Listener receives market events. Listeners may read the market through its
// View but must not mutate it. A returned error aborts the current step.
type Listener interface {
	OnEvent(event Event) error
}

type ListenerFunc func(event Event) error

func (f ListenerFunc) OnEvent(event Event) error { return f(event) }
