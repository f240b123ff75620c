package engine

import (
	"fmt"
	"testing"

	. "auctionsim/internal/common"

	"pgregory.net/rapid"
)

func drawOrders(t *rapid.T) []*Order {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	orders := make([]*Order, 0, n)
	for i := range n {
		side := rapid.SampledFrom([]Side{Bid, Ask}).Draw(t, fmt.Sprintf("side%d", i))
		price := float64(rapid.IntRange(1, 200).Draw(t, fmt.Sprintf("price%d", i)))
		qty := rapid.Uint64Range(1, 10).Draw(t, fmt.Sprintf("qty%d", i))
		orders = append(orders, NewOrder(AgentID(fmt.Sprintf("agent%d", i)), side, price, qty))
	}
	return orders
}

// Every transaction is priced inside its pair, and the submitted volume is
// conserved: remaining + 2 * traded == submitted.
func TestProperty_ClearConservesQuantityAndPricesInsidePair(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{KindClearingHouse, KindKDouble, KindContinuous}).Draw(t, "kind")
		k := rapid.Float64Range(0, 1).Draw(t, "k")
		a, err := New(Params{Kind: kind, K: k})
		if err != nil {
			t.Fatalf("new auctioneer: %v", err)
		}

		var submitted uint64
		orders := drawOrders(t)
		for _, order := range orders {
			if err := a.NewOrder(order); err != nil {
				t.Fatalf("new order: %v", err)
			}
			submitted += order.Quantity
		}

		txs, err := a.Clear(0)
		if err != nil {
			t.Fatalf("clear: %v", err)
		}

		var traded uint64
		for _, tx := range txs {
			if tx.Price < tx.Ask.Price || tx.Price > tx.Bid.Price {
				t.Fatalf("price %v outside [%v, %v]", tx.Price, tx.Ask.Price, tx.Bid.Price)
			}
			if tx.Quantity == 0 {
				t.Fatalf("empty transaction")
			}
			traded += tx.Quantity
		}

		var remaining uint64
		for _, order := range orders {
			if order.Remaining > order.Quantity {
				t.Fatalf("remaining %d above quantity %d", order.Remaining, order.Quantity)
			}
			remaining += order.Remaining
		}
		if remaining+2*traded != submitted {
			t.Fatalf("remaining %d + 2*traded %d != submitted %d", remaining, traded, submitted)
		}

		book := a.(interface{ Book() *OrderBook }).Book()
		if book.Matchable() {
			t.Fatalf("book still crossed after clear")
		}
		for _, order := range orders {
			if (order.Remaining == 0) == book.Contains(order) {
				t.Fatalf("order %s remaining %d, in book %v", order.UUID, order.Remaining, book.Contains(order))
			}
		}
	})
}

// Each transaction never trades more than either side had left when it was
// matched.
func TestProperty_TransactionWithinRemaining(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewKDouble(KPricing{k: 0.5}, Options{})
		orders := drawOrders(t)
		for _, order := range orders {
			if err := a.NewOrder(order); err != nil {
				t.Fatalf("new order: %v", err)
			}
		}

		txs, err := a.Clear(0)
		if err != nil {
			t.Fatalf("clear: %v", err)
		}

		left := make(map[string]uint64, len(orders))
		for _, order := range orders {
			left[order.UUID] = order.Quantity
		}
		for _, tx := range txs {
			if tx.Quantity > left[tx.Ask.UUID] || tx.Quantity > left[tx.Bid.UUID] {
				t.Fatalf("transaction of %d exceeds remaining", tx.Quantity)
			}
			left[tx.Ask.UUID] -= tx.Quantity
			left[tx.Bid.UUID] -= tx.Quantity
		}
		for _, order := range orders {
			if left[order.UUID] != order.Remaining {
				t.Fatalf("order %s left %d, remaining %d", order.UUID, left[order.UUID], order.Remaining)
			}
		}
	})
}

// The ascending auction keeps the same guarantees over its reservation and a
// run of strictly improving bids.
func TestProperty_AscendingClearConservesQuantityAndPricesInsidePair(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		k := rapid.Float64Range(0, 1).Draw(t, "k")
		reservePrice := float64(rapid.IntRange(1, 200).Draw(t, "reservePrice"))
		reserveQuantity := rapid.Uint64Range(1, 10).Draw(t, "reserveQuantity")
		a, err := NewAscending(KPricing{k: k}, "house", reservePrice, reserveQuantity, Options{})
		if err != nil {
			t.Fatalf("new ascending: %v", err)
		}

		orders := []*Order{a.Reservation()}
		submitted := reserveQuantity
		price := float64(rapid.IntRange(1, 100).Draw(t, "start"))
		n := rapid.IntRange(0, 20).Draw(t, "n")
		for i := range n {
			qty := rapid.Uint64Range(1, 5).Draw(t, fmt.Sprintf("qty%d", i))
			bid := NewOrder(AgentID(fmt.Sprintf("bidder%d", i)), Bid, price, qty)
			if err := a.NewOrder(bid); err != nil {
				t.Fatalf("improving bid %v rejected: %v", price, err)
			}
			orders = append(orders, bid)
			submitted += qty
			price += float64(rapid.IntRange(1, 20).Draw(t, fmt.Sprintf("step%d", i)))
		}

		txs, err := a.Clear(0)
		if err != nil {
			t.Fatalf("clear: %v", err)
		}

		var traded uint64
		for _, tx := range txs {
			if tx.Ask != a.Reservation() {
				t.Fatalf("sold by %s, not the reservation", tx.Seller())
			}
			if tx.Price < tx.Ask.Price || tx.Price > tx.Bid.Price {
				t.Fatalf("price %v outside [%v, %v]", tx.Price, tx.Ask.Price, tx.Bid.Price)
			}
			traded += tx.Quantity
		}
		if traded > reserveQuantity {
			t.Fatalf("sold %d of %d units", traded, reserveQuantity)
		}

		var remaining uint64
		for _, order := range orders {
			remaining += order.Remaining
		}
		if remaining+2*traded != submitted {
			t.Fatalf("remaining %d + 2*traded %d != submitted %d", remaining, traded, submitted)
		}
		if a.Book().Matchable() {
			t.Fatalf("book still crossed after clear")
		}
	})
}
