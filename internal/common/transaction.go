package common

import "fmt"

// Transaction is one match produced by an auctioneer's clear. Ask and Bid point
// at the matched orders, whose Remaining has already been decremented by
// Quantity.
type Transaction struct {
	Ask      *Order
	Bid      *Order
	Price    float64
	Quantity uint64
	Round    int
}

func (t Transaction) Buyer() AgentID  { return t.Bid.Owner }
func (t Transaction) Seller() AgentID { return t.Ask.Owner }

// Value is Price * Quantity.
func (t Transaction) Value() float64 { return t.Price * float64(t.Quantity) }

func (t Transaction) String() string {
	return fmt.Sprintf(
		"round=%d qty=%d price=%.4f buyer=%s (bid %.4f) seller=%s (ask %.4f)",
		t.Round,
		t.Quantity,
		t.Price,
		t.Bid.Owner,
		t.Bid.Price,
		t.Ask.Owner,
		t.Ask.Price,
	)
}
