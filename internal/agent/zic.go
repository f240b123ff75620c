package agent

import (
	"math/rand/v2"

	"auctionsim/internal/common"
	"auctionsim/internal/market"
)

// ZIC is a zero-intelligence trader constrained to never trade at a loss:
// buyers bid uniformly in [minPrice, valuation], sellers ask uniformly in
// [valuation, maxPrice], one unit at a time.
type ZIC struct {
	Trader
	minPrice float64
	maxPrice float64
	rng      *rand.Rand
}

func NewZIC(id common.AgentID, side common.Side, valuation float64, entitlement uint64, minPrice, maxPrice float64, rng *rand.Rand) *ZIC {
	return &ZIC{
		Trader:   newTrader(id, side, valuation, entitlement),
		minPrice: minPrice,
		maxPrice: maxPrice,
		rng:      rng,
	}
}

func (z *ZIC) RequestOrder(view market.View) *common.Order {
	if z.available(view) == 0 {
		return nil
	}
	lo, hi := z.minPrice, z.valuation
	if z.side == common.Ask {
		lo, hi = z.valuation, z.maxPrice
	}
	if hi < lo {
		return nil
	}
	price := lo + z.rng.Float64()*(hi-lo)
	return common.NewOrder(z.id, z.side, price, 1)
}

var (
	_ market.Agent    = (*ZIC)(nil)
	_ market.Resetter = (*ZIC)(nil)
)
