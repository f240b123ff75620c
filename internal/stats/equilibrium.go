// Package stats computes benchmark statistics for a trader population: the
// competitive equilibrium of the induced supply and demand curves and the
// allocative efficiency of what actually traded.
package stats

import (
	"cmp"
	"math"
	"slices"

	"auctionsim/internal/common"
)

// Valuation is a trader's private value for each of its units.
type Valuation struct {
	Owner common.AgentID
	Side  common.Side
	Value float64
	Units uint64
}

// Valued is implemented by agents that expose their valuation.
type Valued interface {
	ID() common.AgentID
	Side() common.Side
	Valuation() float64
	Entitlement() uint64
}

func ValuationOf(v Valued) Valuation {
	return Valuation{Owner: v.ID(), Side: v.Side(), Value: v.Valuation(), Units: v.Entitlement()}
}

type Equilibrium struct {
	Exists   bool
	MinPrice float64
	MaxPrice float64
	Quantity uint64
	// Surplus is the total gain from trade at equilibrium.
	Surplus float64
}

// Price is the midpoint of the equilibrium price range, NaN when there is no
// equilibrium.
func (e Equilibrium) Price() float64 {
	if !e.Exists {
		return math.NaN()
	}
	return (e.MinPrice + e.MaxPrice) / 2
}

// ComputeEquilibrium crosses the demand curve (buyer units, highest value
// first) with the supply curve (seller units, lowest value first). The
// equilibrium quantity is the number of units where demand is at or above
// supply; the price range is bounded by the marginal traded units and the
// first excluded unit on each side.
func ComputeEquilibrium(valuations []Valuation) Equilibrium {
	var demand, supply []float64
	for _, v := range valuations {
		for range v.Units {
			if v.Side == common.Bid {
				demand = append(demand, v.Value)
			} else {
				supply = append(supply, v.Value)
			}
		}
	}
	slices.SortFunc(demand, func(a, b float64) int { return cmp.Compare(b, a) })
	slices.Sort(supply)

	var q int
	var surplus float64
	for q < len(demand) && q < len(supply) && demand[q] >= supply[q] {
		surplus += demand[q] - supply[q]
		q++
	}
	if q == 0 {
		return Equilibrium{}
	}

	lo, hi := supply[q-1], demand[q-1]
	if q < len(demand) {
		lo = math.Max(lo, demand[q])
	}
	if q < len(supply) {
		hi = math.Min(hi, supply[q])
	}
	return Equilibrium{
		Exists:   true,
		MinPrice: lo,
		MaxPrice: hi,
		Quantity: uint64(q),
		Surplus:  surplus,
	}
}

// RealisedSurplus sums buyer value minus seller value over every traded
// unit. Owners missing from valuations count as zero value.
func RealisedSurplus(txs []common.Transaction, valuations []Valuation) float64 {
	values := make(map[common.AgentID]float64, len(valuations))
	for _, v := range valuations {
		values[v.Owner] = v.Value
	}
	var surplus float64
	for _, tx := range txs {
		surplus += (values[tx.Buyer()] - values[tx.Seller()]) * float64(tx.Quantity)
	}
	return surplus
}

// Efficiency is realised over equilibrium surplus, NaN when the equilibrium
// has no gains from trade.
func Efficiency(realised float64, eq Equilibrium) float64 {
	if !eq.Exists || eq.Surplus == 0 {
		return math.NaN()
	}
	return realised / eq.Surplus
}
