package common

import (
	"fmt"

	"github.com/google/uuid"
)

// Order (a shout) is a priced, quantified intent to trade. Once submitted
// only Remaining changes, and only through matching.
type Order struct {
	UUID      string  // Order tracked uuid
	Owner     AgentID // Who owns this order
	Side      Side    // Order side
	Price     float64 // Limiting price
	Quantity  uint64  // Total volume requested
	Remaining uint64  // Remaining quantity
	Round     int     // Round of submission, stamped by the market
	Tick      int     // Poll tick of submission, stamped by the market
	Sequence  uint64  // Arrival order inside the book, stamped on insert
}

// NewOrder builds an order with a fresh identity and its full quantity
// remaining.
func NewOrder(owner AgentID, side Side, price float64, quantity uint64) *Order {
	return &Order{
		UUID:      uuid.New().String(),
		Owner:     owner,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
	}
}

func (o *Order) IsBid() bool { return o.Side == Bid }
func (o *Order) IsAsk() bool { return o.Side == Ask }

// Filled returns the quantity already matched.
func (o *Order) Filled() uint64 { return o.Quantity - o.Remaining }

func (o Order) String() string {
	return fmt.Sprintf(
		"%s %s %d/%d @ %.4f owner=%s round=%d",
		o.UUID,
		o.Side,
		o.Remaining,
		o.Quantity,
		o.Price,
		o.Owner,
		o.Round,
	)
}
