package engine

import (
	"fmt"
	"iter"
	"slices"

	"auctionsim/internal/common"

	"github.com/tidwall/btree"
)

type PriceLevel struct {
	priceLevel float64
	orders     []*common.Order
}

type PriceLevels = btree.BTreeG[*PriceLevel]

// OrderBook stores the outstanding bids and asks of one auctioneer. Bids are
// kept highest price first, asks lowest price first, and orders on the same
// price level in arrival order.
type OrderBook struct {
	// Price levels to orders sat on the price level, sorted by time added
	// as they will be push-back'd.
	bids *PriceLevels
	asks *PriceLevels

	// Live orders by uuid.
	index map[string]*common.Order
	seq   uint64

	// Some book keeping
	nBids       uint64 // Track the number of bids in the book.
	nAsks       uint64 // Track the number of asks in the book.
	bidQuantity uint64 // Track the bid-side liquidity of the book.
	askQuantity uint64 // Track the ask-side liquidity of the book.
}

func NewOrderBook() *OrderBook {
	book := &OrderBook{}
	book.Reset()
	return book
}

// Reset drops every order from the book.
func (book *OrderBook) Reset() {
	// Sorted greatest first.
	book.bids = btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.priceLevel > b.priceLevel
	})
	// Sorted least first.
	book.asks = btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.priceLevel < b.priceLevel
	})
	book.index = make(map[string]*common.Order)
	book.seq = 0
	book.nBids, book.nAsks = 0, 0
	book.bidQuantity, book.askQuantity = 0, 0
}

func (book *OrderBook) levels(side common.Side) *PriceLevels {
	if side == common.Bid {
		return book.bids
	}
	return book.asks
}

// Insert stores the order at the back of its price level and stamps its
// arrival sequence. Inserting an order whose uuid is already live fails with
// ErrDuplicateOrder and leaves the book untouched.
func (book *OrderBook) Insert(order *common.Order) error {
	if _, ok := book.index[order.UUID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.UUID)
	}
	if order.Remaining == 0 || order.Remaining > order.Quantity {
		return fmt.Errorf("%w: remaining quantity %d of %d", ErrInvalidOrder, order.Remaining, order.Quantity)
	}

	book.seq++
	order.Sequence = book.seq

	// Levels comparator only accounts for price levels, so we create a dummy price
	// level for the search.
	levels := book.levels(order.Side)
	level, ok := levels.GetMut(&PriceLevel{priceLevel: order.Price})
	if ok {
		level.orders = append(level.orders, order)
	} else {
		levels.Set(&PriceLevel{
			priceLevel: order.Price,
			orders:     []*common.Order{order},
		})
	}

	book.index[order.UUID] = order
	book.track(order.Side, 1, order.Remaining)
	return nil
}

// Remove cancels a live order by uuid. It reports whether the order was found.
func (book *OrderBook) Remove(order *common.Order) bool {
	stored, ok := book.index[order.UUID]
	if !ok {
		return false
	}
	book.unlink(stored)
	book.untrack(stored.Side, 1, stored.Remaining)
	return true
}

// Fill consumes quantity from a live order, removing it once nothing remains.
func (book *OrderBook) Fill(order *common.Order, quantity uint64) error {
	stored, ok := book.index[order.UUID]
	if !ok || stored != order {
		return fmt.Errorf("%w: fill of unknown order %s", ErrFatalMarketState, order.UUID)
	}
	if quantity == 0 || quantity > order.Remaining {
		return fmt.Errorf("%w: fill of %d exceeds remaining %d", ErrFatalMarketState, quantity, order.Remaining)
	}

	order.Remaining -= quantity
	book.untrack(order.Side, 0, quantity)
	if order.Remaining == 0 {
		book.unlink(order)
		book.untrack(order.Side, 1, 0)
	}
	return nil
}

func (book *OrderBook) unlink(order *common.Order) {
	delete(book.index, order.UUID)

	levels := book.levels(order.Side)
	level, ok := levels.GetMut(&PriceLevel{priceLevel: order.Price})
	if !ok {
		return
	}
	level.orders = slices.DeleteFunc(level.orders, func(o *common.Order) bool {
		return o.UUID == order.UUID
	})
	if len(level.orders) == 0 {
		levels.Delete(level)
	}
}

func (book *OrderBook) track(side common.Side, orders, quantity uint64) {
	switch side {
	case common.Bid:
		book.nBids += orders
		book.bidQuantity += quantity
	case common.Ask:
		book.nAsks += orders
		book.askQuantity += quantity
	}
}

func (book *OrderBook) untrack(side common.Side, orders, quantity uint64) {
	switch side {
	case common.Bid:
		book.nBids -= orders
		book.bidQuantity -= quantity
	case common.Ask:
		book.nAsks -= orders
		book.askQuantity -= quantity
	}
}

// Contains reports whether an order with the same uuid is live.
func (book *OrderBook) Contains(order *common.Order) bool {
	_, ok := book.index[order.UUID]
	return ok
}

// HighestBid returns the best bid, if any.
func (book *OrderBook) HighestBid() (*common.Order, bool) {
	return top(book.bids)
}

// LowestAsk returns the best ask, if any.
func (book *OrderBook) LowestAsk() (*common.Order, bool) {
	return top(book.asks)
}

// Min here accounts for bids and asks being in inverse order, based on their
// comparison method.
func top(levels *PriceLevels) (*common.Order, bool) {
	level, ok := levels.Min()
	if !ok || len(level.orders) == 0 {
		return nil, false
	}
	return level.orders[0], true
}

// Matchable is true when both sides are non-empty and the best bid is at or
// above the best ask.
func (book *OrderBook) Matchable() bool {
	bid, bidOk := book.HighestBid()
	ask, askOk := book.LowestAsk()
	return bidOk && askOk && bid.Price >= ask.Price
}

// Bids iterates the bids in priority order. The book must not be mutated
// while iterating.
func (book *OrderBook) Bids() iter.Seq[*common.Order] {
	return scan(book.bids)
}

// Asks iterates the asks in priority order. The book must not be mutated
// while iterating.
func (book *OrderBook) Asks() iter.Seq[*common.Order] {
	return scan(book.asks)
}

// Orders iterates one side of the book in priority order.
func (book *OrderBook) Orders(side common.Side) iter.Seq[*common.Order] {
	return scan(book.levels(side))
}

func scan(levels *PriceLevels) iter.Seq[*common.Order] {
	return func(yield func(*common.Order) bool) {
		levels.Scan(func(level *PriceLevel) bool {
			for _, order := range level.orders {
				if !yield(order) {
					return false
				}
			}
			return true
		})
	}
}

func (book *OrderBook) NumBids() uint64     { return book.nBids }
func (book *OrderBook) NumAsks() uint64     { return book.nAsks }
func (book *OrderBook) BidQuantity() uint64 { return book.bidQuantity }
func (book *OrderBook) AskQuantity() uint64 { return book.askQuantity }

// Len is the number of live orders on both sides.
func (book *OrderBook) Len() int { return len(book.index) }

// FlatPriceLevel is an exported copy of a price level, used for reporting.
type FlatPriceLevel struct {
	PriceLevel float64
	Orders     []*common.Order
}

// Depth returns one side of the book as flattened price levels in priority
// order.
func (book *OrderBook) Depth(side common.Side) []FlatPriceLevel {
	return FlattenLevels(book.levels(side).Items())
}

func FlattenLevels(levels []*PriceLevel) []FlatPriceLevel {
	flat := make([]FlatPriceLevel, 0, len(levels))
	for _, level := range levels {
		flat = append(flat, FlatPriceLevel{
			PriceLevel: level.priceLevel,
			Orders:     slices.Clone(level.orders),
		})
	}
	return flat
}
