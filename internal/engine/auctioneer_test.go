package engine

import (
	"bytes"
	"testing"

	. "auctionsim/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPricing(t *testing.T, k float64) KPricing {
	t.Helper()
	pricing, err := NewKPricing(k)
	require.NoError(t, err)
	return pricing
}

func submit(t *testing.T, a Auctioneer, owner AgentID, side Side, price float64, qty uint64) *Order {
	t.Helper()
	order := NewOrder(owner, side, price, qty)
	require.NoError(t, a.NewOrder(order))
	return order
}

func TestNewOrder_Validation(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			a, err := New(Params{Kind: kind, K: 0.5, Seller: "seller", ReservePrice: 1, ReserveQuantity: 1})
			require.NoError(t, err)
			before := a.(interface{ Book() *OrderBook }).Book().Len()

			assert.ErrorIs(t, a.NewOrder(NewOrder("a", Bid, 0, 1)), ErrInvalidOrder)
			assert.ErrorIs(t, a.NewOrder(NewOrder("a", Bid, -5, 1)), ErrInvalidOrder)
			assert.ErrorIs(t, a.NewOrder(NewOrder("a", Bid, 10, 0)), ErrInvalidOrder)
			assert.ErrorIs(t, a.NewOrder(nil), ErrInvalidOrder)

			order := NewOrder("a", Bid, 10, 1)
			require.NoError(t, a.NewOrder(order))
			assert.ErrorIs(t, a.NewOrder(order), ErrDuplicateOrder)

			assert.Equal(t, before+1, a.(interface{ Book() *OrderBook }).Book().Len())
		})
	}
}

func TestAscending_RejectsAsks(t *testing.T) {
	a, err := NewAscending(mustPricing(t, 1), "seller", 90, 1, Options{ShoutsVisible: true})
	require.NoError(t, err)

	err = a.NewOrder(NewOrder("trader", Ask, 95, 1))
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.ErrorIs(t, err, ErrInvalidSide)
	assert.Equal(t, 1, a.Book().Len(), "only the reservation is stored")
}

func TestAscending_BidsMustImprove(t *testing.T) {
	a, err := NewAscending(mustPricing(t, 1), "seller", 90, 1, Options{})
	require.NoError(t, err)

	submit(t, a, "b1", Bid, 80, 1)
	assert.ErrorIs(t, a.NewOrder(NewOrder("b2", Bid, 80, 1)), ErrInvalidOrder)
	assert.ErrorIs(t, a.NewOrder(NewOrder("b2", Bid, 75, 1)), ErrInvalidOrder)
	submit(t, a, "b2", Bid, 81, 1)
}

func TestAscending_ReservationQuote(t *testing.T) {
	a, err := NewAscending(mustPricing(t, 1), "seller", 90, 1, Options{})
	require.NoError(t, err)

	submit(t, a, "b1", Bid, 80, 1)
	submit(t, a, "b2", Bid, 101, 1)

	quote := a.GenerateQuote()
	assert.Equal(t, 90.0, quote.Bid)
	assert.Equal(t, 101.0, quote.Ask)
	assert.Equal(t, quote, a.Quote())
}

func TestAscending_SeedFailureIsFatal(t *testing.T) {
	_, err := NewAscending(mustPricing(t, 1), "seller", 0, 1, Options{})
	assert.ErrorIs(t, err, ErrFatalMarketState)

	_, err = New(Params{Kind: KindAscending, K: 1, Seller: "seller", ReservePrice: 10})
	assert.ErrorIs(t, err, ErrFatalMarketState)
}

func TestAscending_ClearSellsToHighestBid(t *testing.T) {
	a, err := NewAscending(mustPricing(t, 1), "seller", 90, 1, Options{})
	require.NoError(t, err)

	submit(t, a, "b1", Bid, 80, 1)
	txs, err := a.Clear(0)
	require.NoError(t, err)
	assert.Empty(t, txs, "no bid reaches the reserve")

	submit(t, a, "b2", Bid, 101, 1)
	txs, err = a.Clear(1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, AgentID("b2"), txs[0].Buyer())
	assert.Equal(t, AgentID("seller"), txs[0].Seller())
	assert.Equal(t, 101.0, txs[0].Price)
	assert.Equal(t, 1, txs[0].Round)
	assert.Equal(t, 101.0, a.Ledger().Account("seller").Balance())
	assert.Equal(t, -101.0, a.Ledger().Account("b2").Balance())

	// Reset reseeds the reservation.
	require.NoError(t, a.Reset())
	assert.Equal(t, 1, a.Book().Len())
	ask, ok := a.Book().LowestAsk()
	require.True(t, ok)
	assert.Same(t, a.Reservation(), ask)
	assert.Equal(t, 101.0, a.Ledger().Account("seller").Balance(), "accounts survive a reset")
}

func TestClearingHouse_UniformPrice(t *testing.T) {
	a := NewClearingHouse(mustPricing(t, 0.5), Options{})

	submit(t, a, "b1", Bid, 120, 1)
	submit(t, a, "b2", Bid, 110, 1)
	submit(t, a, "b3", Bid, 80, 1)
	submit(t, a, "s1", Ask, 90, 1)
	submit(t, a, "s2", Ask, 100, 1)
	submit(t, a, "s3", Ask, 130, 1)

	txs, err := a.Clear(3)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Marginal pair is bid 110 / ask 100.
	for _, tx := range txs {
		assert.Equal(t, 105.0, tx.Price)
		assert.Equal(t, uint64(1), tx.Quantity)
		assert.Equal(t, 3, tx.Round)
	}
	assert.Equal(t, AgentID("b1"), txs[0].Buyer())
	assert.Equal(t, AgentID("s1"), txs[0].Seller())
	assert.Equal(t, AgentID("b2"), txs[1].Buyer())
	assert.Equal(t, AgentID("s2"), txs[1].Seller())

	// Unmatched orders remain and the quote shows them.
	assert.Equal(t, 2, a.Book().Len())
	assert.Equal(t, Quote{Ask: 130, Bid: 80}, a.Quote())
	assert.Zero(t, a.Ledger().Total())
}

func TestClearingHouse_MultiUnit(t *testing.T) {
	a := NewClearingHouse(mustPricing(t, 0), Options{})

	bid := submit(t, a, "b1", Bid, 100, 5)
	submit(t, a, "s1", Ask, 90, 2)
	submit(t, a, "s2", Ask, 95, 2)

	txs, err := a.Clear(0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, uint64(2), txs[0].Quantity)
	assert.Equal(t, uint64(2), txs[1].Quantity)
	assert.Equal(t, 95.0, txs[0].Price)
	assert.Equal(t, uint64(1), bid.Remaining)
	assert.True(t, a.Book().Contains(bid))
}

func TestKDouble_DiscriminatoryPricing(t *testing.T) {
	a := NewKDouble(mustPricing(t, 0.5), Options{})

	submit(t, a, "b1", Bid, 120, 1)
	submit(t, a, "b2", Bid, 110, 1)
	submit(t, a, "s1", Ask, 90, 1)
	submit(t, a, "s2", Ask, 100, 1)

	txs, err := a.Clear(0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 105.0, txs[0].Price)
	assert.Equal(t, 105.0, txs[1].Price)

	submit(t, a, "b3", Bid, 100, 1)
	submit(t, a, "s3", Ask, 60, 1)
	txs, err = a.Clear(1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 80.0, txs[0].Price)
}

func TestContinuousDouble(t *testing.T) {
	a := NewContinuousDouble(mustPricing(t, 0), Options{ShoutsVisible: true})
	assert.True(t, a.Continuous())
	assert.Equal(t, KindContinuous, a.Kind())

	submit(t, a, "s1", Ask, 90, 1)
	submit(t, a, "b1", Bid, 95, 1)
	txs, err := a.Clear(0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 90.0, txs[0].Price)
}

func TestFee_PaidToAuctioneer(t *testing.T) {
	a := NewKDouble(mustPricing(t, 1), Options{Fee: 0.5})

	submit(t, a, "b1", Bid, 100, 2)
	submit(t, a, "s1", Ask, 90, 2)
	_, err := a.Clear(0)
	require.NoError(t, err)

	assert.Equal(t, 2.0, a.Account().Balance())
	assert.Equal(t, -201.0, a.Ledger().Account("b1").Balance())
	assert.Equal(t, 199.0, a.Ledger().Account("s1").Balance())
	assert.Zero(t, a.Ledger().Total())
}

func TestRemoveOrder(t *testing.T) {
	a := NewClearingHouse(mustPricing(t, 0.5), Options{})
	order := submit(t, a, "b1", Bid, 100, 1)

	a.RemoveOrder(order)
	a.RemoveOrder(order)
	a.RemoveOrder(nil)
	assert.Zero(t, a.Book().Len())

	// A cancelled identity may be submitted again.
	assert.NoError(t, a.NewOrder(order))
}

func TestShoutsNotVisible(t *testing.T) {
	hidden := NewClearingHouse(mustPricing(t, 0.5), Options{ShoutsVisible: false})
	submit(t, hidden, "b1", Bid, 100, 1)

	assert.False(t, hidden.ShoutsVisible())
	_, err := hidden.LastBid()
	assert.ErrorIs(t, err, ErrShoutsNotVisible)
	_, err = hidden.LastAsk()
	assert.ErrorIs(t, err, ErrShoutsNotVisible)
	_, err = hidden.Orders(Bid)
	assert.ErrorIs(t, err, ErrShoutsNotVisible)

	visible := NewClearingHouse(mustPricing(t, 0.5), Options{ShoutsVisible: true})
	bid := submit(t, visible, "b1", Bid, 100, 1)
	last, err := visible.LastBid()
	require.NoError(t, err)
	assert.Same(t, bid, last)
	orders, err := visible.Orders(Bid)
	require.NoError(t, err)
	var n int
	for range orders {
		n++
	}
	assert.Equal(t, 1, n)
}

func TestPrintState(t *testing.T) {
	a := NewClearingHouse(mustPricing(t, 0.5), Options{})
	submit(t, a, "b1", Bid, 100, 2)
	submit(t, a, "b2", Bid, 100, 1)
	a.GenerateQuote()

	var buf bytes.Buffer
	require.NoError(t, a.PrintState(&buf))
	assert.Contains(t, buf.String(), "clearing-house")
	assert.Contains(t, buf.String(), "100.0000 x 3 (2 orders)")
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Params{Kind: "dutch", K: 0.5})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(Params{Kind: KindClearingHouse, K: 2})
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestEquilibriumQuote_NothingMatchable(t *testing.T) {
	book := NewOrderBook()
	placeTestOrders(t, book, 80, Bid, 1)
	placeTestOrders(t, book, 90, Ask, 1)

	assert.Equal(t, bestQuote(book), equilibriumQuote(book))
	assert.Equal(t, EmptyQuote(), equilibriumQuote(NewOrderBook()))
}
