package agent

import (
	"math/rand/v2"
	"testing"

	. "auctionsim/internal/common"
	"auctionsim/internal/engine"
	"auctionsim/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZIC_NeverShoutsAtALoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	buyer := NewZIC("buyer", Bid, 80, 100, 1, 200, rng)
	seller := NewZIC("seller", Ask, 60, 100, 1, 200, rng)

	for range 1000 {
		bid := buyer.RequestOrder(nil)
		require.NotNil(t, bid)
		assert.GreaterOrEqual(t, bid.Price, 1.0)
		assert.LessOrEqual(t, bid.Price, 80.0)
		assert.Equal(t, uint64(1), bid.Quantity)

		ask := seller.RequestOrder(nil)
		require.NotNil(t, ask)
		assert.GreaterOrEqual(t, ask.Price, 60.0)
		assert.LessOrEqual(t, ask.Price, 200.0)
	}
}

func TestZIC_PassesWhenNoProfitableRange(t *testing.T) {
	buyer := NewZIC("buyer", Bid, 0.5, 1, 1, 200, rand.New(rand.NewPCG(1, 2)))
	assert.Nil(t, buyer.RequestOrder(nil))
}

func TestTrader_Entitlement(t *testing.T) {
	buyer := NewTruthful("buyer", Bid, 100, 2)
	other := NewOrder("seller", Ask, 90, 2)

	order := buyer.RequestOrder(nil)
	require.NotNil(t, order)
	assert.Equal(t, uint64(2), order.Quantity)
	assert.Equal(t, 100.0, order.Price)

	buyer.NotifyTransaction(Transaction{Bid: order, Ask: other, Price: 95, Quantity: 1})
	assert.True(t, buyer.IsActive())
	assert.Equal(t, uint64(1), buyer.RequestOrder(nil).Quantity)

	buyer.NotifyTransaction(Transaction{Bid: order, Ask: other, Price: 90, Quantity: 1})
	assert.False(t, buyer.IsActive())
	assert.Nil(t, buyer.RequestOrder(nil))
	assert.Equal(t, 15.0, buyer.Profit())

	// Transactions between other parties are ignored.
	stranger := NewOrder("someone", Bid, 100, 1)
	buyer.NotifyTransaction(Transaction{Bid: stranger, Ask: other, Price: 90, Quantity: 1})
	assert.Equal(t, uint64(2), buyer.Traded())

	buyer.Reset()
	assert.True(t, buyer.IsActive())
	assert.Equal(t, 15.0, buyer.Profit())
}

func TestTrader_SellerProfit(t *testing.T) {
	seller := NewTruthful("seller", Ask, 40, 1)
	ask := seller.RequestOrder(nil)
	seller.NotifyTransaction(Transaction{Bid: NewOrder("buyer", Bid, 60, 1), Ask: ask, Price: 50, Quantity: 1})

	assert.Equal(t, 10.0, seller.Profit())
	assert.False(t, seller.IsActive())
}

type restingView struct {
	market.View
	outstanding map[AgentID]uint64
}

func (v restingView) Outstanding(id AgentID) uint64 { return v.outstanding[id] }

func TestTrader_OrdersCappedByOutstanding(t *testing.T) {
	buyer := NewTruthful("buyer", Bid, 100, 3)
	view := restingView{outstanding: map[AgentID]uint64{"buyer": 2}}

	order := buyer.RequestOrder(view)
	require.NotNil(t, order)
	assert.Equal(t, uint64(1), order.Quantity)

	view.outstanding["buyer"] = 3
	assert.Nil(t, buyer.RequestOrder(view))
	assert.True(t, buyer.IsActive(), "still active while orders rest")

	zic := NewZIC("zic", Bid, 100, 1, 1, 200, rand.New(rand.NewPCG(1, 2)))
	view.outstanding["zic"] = 1
	assert.Nil(t, zic.RequestOrder(view))
}

func TestTruthful_RestingOrdersRespectEntitlement(t *testing.T) {
	a, err := engine.New(engine.Params{Kind: engine.KindClearingHouse, K: 0.5})
	require.NoError(t, err)
	m := market.New(a, market.Config{Seed: 3})
	buyer := NewTruthful("buyer", Bid, 100, 2)
	require.NoError(t, m.RegisterAgent(buyer))

	require.NoError(t, m.Begin())
	require.NoError(t, m.Step())
	require.NoError(t, m.Step())
	assert.Equal(t, uint64(2), m.Outstanding("buyer"))

	seller := NewTruthful("seller", Ask, 50, 10)
	require.NoError(t, m.RegisterAgent(seller))
	for range 3 {
		require.NoError(t, m.Step())
	}

	assert.Equal(t, uint64(2), buyer.Traded())
	assert.Equal(t, uint64(2), seller.Traded())
	assert.False(t, buyer.IsActive())
	assert.Zero(t, m.Outstanding("buyer"))
}
