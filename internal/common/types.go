package common

import "math"

// AgentID identifies a market participant. The engine only ever holds the id,
// never the agent itself.
type AgentID string

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return "unknown"
}

// Opposite returns the counterparty side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Quote is the publicly announced best bid/ask pair. An empty side is
// represented by +Inf for the ask and -Inf for the bid.
type Quote struct {
	Ask float64
	Bid float64
}

func EmptyQuote() Quote {
	return Quote{Ask: math.Inf(1), Bid: math.Inf(-1)}
}

func (q Quote) HasAsk() bool { return !math.IsInf(q.Ask, 1) }
func (q Quote) HasBid() bool { return !math.IsInf(q.Bid, -1) }

// Spread is Ask - Bid, or NaN when either side is empty.
func (q Quote) Spread() float64 {
	if !q.HasAsk() || !q.HasBid() {
		return math.NaN()
	}
	return q.Ask - q.Bid
}

// Midpoint is the average of both sides, or NaN when either side is empty.
func (q Quote) Midpoint() float64 {
	if !q.HasAsk() || !q.HasBid() {
		return math.NaN()
	}
	return (q.Ask + q.Bid) / 2
}
