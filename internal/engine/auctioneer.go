package engine

import (
	"fmt"
	"io"
	"iter"
	"math"
	"slices"

	"auctionsim/internal/common"
)

// AuctioneerID owns the auctioneer's own account in its ledger.
const AuctioneerID common.AgentID = "auctioneer"

// Auctioneer validates and stores orders and turns them into transactions.
// Implementations are not safe for concurrent use; the market drives them
// from a single goroutine.
type Auctioneer interface {
	// NewOrder validates the order and stores it. On error the auctioneer is
	// left untouched.
	NewOrder(order *common.Order) error
	// RemoveOrder cancels a live order. Unknown orders are ignored.
	RemoveOrder(order *common.Order)
	// Clear runs the matching algorithm, settles every match and returns
	// the resulting transactions.
	Clear(round int) ([]common.Transaction, error)
	// GenerateQuote recomputes and stores the current quote.
	GenerateQuote() common.Quote
	Quote() common.Quote
	ShoutsVisible() bool
	LastAsk() (*common.Order, error)
	LastBid() (*common.Order, error)
	Orders(side common.Side) (iter.Seq[*common.Order], error)
	Account() *Account
	Ledger() *Ledger
	PrintState(w io.Writer) error
	// Reset empties the book for a new day. Accounts are kept.
	Reset() error
	Kind() Kind
}

// Reserved reports whether id is taken by the auctioneer itself or by a
// party it places orders for, such as the seller of an ascending auction.
func Reserved(a Auctioneer, id common.AgentID) bool {
	if id == AuctioneerID {
		return true
	}
	if r, ok := a.(interface{ Reservation() *common.Order }); ok {
		if reservation := r.Reservation(); reservation != nil {
			return reservation.Owner == id
		}
	}
	return false
}

// Continuous is implemented by auctioneers that want a clear after every
// accepted order.
type Continuous interface {
	Continuous() bool
}

// Options are the settings shared by every auctioneer variant.
type Options struct {
	ShoutsVisible bool
	// Fee is charged per traded unit to both buyer and seller and paid into
	// the auctioneer's account.
	Fee float64
}

// core is the validation, storage, settlement and quoting plumbing each
// variant composes.
type core struct {
	kind    Kind
	book    *OrderBook
	ledger  *Ledger
	opts    Options
	quote   common.Quote
	lastAsk *common.Order
	lastBid *common.Order
}

func newCore(kind Kind, opts Options) core {
	return core{
		kind:   kind,
		book:   NewOrderBook(),
		ledger: NewLedger(),
		opts:   opts,
		quote:  common.EmptyQuote(),
	}
}

func (c *core) Kind() Kind { return c.kind }

// Book exposes the order book for read-only use.
func (c *core) Book() *OrderBook { return c.book }

func checkOrder(order *common.Order) error {
	switch {
	case order == nil:
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	case math.IsNaN(order.Price) || math.IsInf(order.Price, 0) || order.Price <= 0:
		return fmt.Errorf("%w: price %v", ErrInvalidOrder, order.Price)
	case order.Quantity == 0:
		return fmt.Errorf("%w: zero quantity", ErrInvalidOrder)
	case order.Side != common.Bid && order.Side != common.Ask:
		return fmt.Errorf("%w: side %d", ErrInvalidOrder, order.Side)
	}
	return nil
}

// accept runs the shared checks, then the variant's own, then stores the
// order.
func (c *core) accept(order *common.Order, checkValidity func(*common.Order) error) error {
	if err := checkOrder(order); err != nil {
		return err
	}
	if c.book.Contains(order) {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.UUID)
	}
	if checkValidity != nil {
		if err := checkValidity(order); err != nil {
			return err
		}
	}
	if err := c.book.Insert(order); err != nil {
		return err
	}
	if order.IsAsk() {
		c.lastAsk = order
	} else {
		c.lastBid = order
	}
	return nil
}

func (c *core) RemoveOrder(order *common.Order) {
	if order == nil {
		return
	}
	c.book.Remove(order)
}

type match struct {
	bid      *common.Order
	ask      *common.Order
	quantity uint64
}

// matchTop pairs the best bid with the best ask while the book is matchable,
// filling both sides. Matches come back in priority order, so the last one
// holds the lowest matched bid and the highest matched ask.
func (c *core) matchTop() ([]match, error) {
	var matches []match
	for c.book.Matchable() {
		bid, _ := c.book.HighestBid()
		ask, _ := c.book.LowestAsk()

		quantity := min(bid.Remaining, ask.Remaining)
		if err := c.book.Fill(bid, quantity); err != nil {
			return matches, err
		}
		if err := c.book.Fill(ask, quantity); err != nil {
			return matches, err
		}
		matches = append(matches, match{bid: bid, ask: ask, quantity: quantity})
	}
	return matches, nil
}

// settle moves the transaction value from buyer to seller and charges the
// fee to both.
func (c *core) settle(tx common.Transaction) {
	buyer := c.ledger.Account(tx.Buyer())
	seller := c.ledger.Account(tx.Seller())
	buyer.Withdraw(tx.Value())
	seller.Deposit(tx.Value())

	if c.opts.Fee > 0 {
		fee := c.opts.Fee * float64(tx.Quantity)
		buyer.Withdraw(fee)
		seller.Withdraw(fee)
		c.Account().Deposit(fee)
		c.Account().Deposit(fee)
	}
}

// transact prices and settles every match.
func (c *core) transact(round int, matches []match, price func(match) (float64, error)) ([]common.Transaction, error) {
	txs := make([]common.Transaction, 0, len(matches))
	for _, m := range matches {
		p, err := price(m)
		if err != nil {
			return txs, fmt.Errorf("%w: %w", ErrFatalMarketState, err)
		}
		tx := common.Transaction{
			Ask:      m.ask,
			Bid:      m.bid,
			Price:    p,
			Quantity: m.quantity,
			Round:    round,
		}
		c.settle(tx)
		txs = append(txs, tx)
	}
	return txs, nil
}

func (c *core) Quote() common.Quote { return c.quote }

func (c *core) ShoutsVisible() bool { return c.opts.ShoutsVisible }

func (c *core) LastAsk() (*common.Order, error) {
	if !c.opts.ShoutsVisible {
		return nil, ErrShoutsNotVisible
	}
	return c.lastAsk, nil
}

func (c *core) LastBid() (*common.Order, error) {
	if !c.opts.ShoutsVisible {
		return nil, ErrShoutsNotVisible
	}
	return c.lastBid, nil
}

func (c *core) Orders(side common.Side) (iter.Seq[*common.Order], error) {
	if !c.opts.ShoutsVisible {
		return nil, ErrShoutsNotVisible
	}
	return c.book.Orders(side), nil
}

func (c *core) Account() *Account { return c.ledger.Account(AuctioneerID) }

func (c *core) Ledger() *Ledger { return c.ledger }

func (c *core) reset() {
	c.book.Reset()
	c.quote = common.EmptyQuote()
	c.lastAsk = nil
	c.lastBid = nil
}

func (c *core) PrintState(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Auctioneer: %s\nQuote:      bid %.4f ask %.4f\n", c.kind, c.quote.Bid, c.quote.Ask); err != nil {
		return err
	}
	for _, side := range []common.Side{common.Ask, common.Bid} {
		if _, err := fmt.Fprintf(w, "%s levels:\n", side); err != nil {
			return err
		}
		for _, level := range c.book.Depth(side) {
			var quantity uint64
			for _, order := range level.Orders {
				quantity += order.Remaining
			}
			if _, err := fmt.Fprintf(w, "  %.4f x %d (%d orders)\n", level.PriceLevel, quantity, len(level.Orders)); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "Account:    %.4f\n", c.Account().Balance())
	return err
}

// bestQuote quotes the best opposing prices in the book.
func bestQuote(book *OrderBook) common.Quote {
	quote := common.EmptyQuote()
	if ask, ok := book.LowestAsk(); ok {
		quote.Ask = ask.Price
	}
	if bid, ok := book.HighestBid(); ok {
		quote.Bid = bid.Price
	}
	return quote
}

// equilibriumQuote splits the book into the units that would match and those
// that would not, and quotes
//
//	ask = min(lowest unmatched ask, lowest matched bid)
//	bid = max(highest matched ask, highest unmatched bid)
//
// With nothing matchable this is the best opposing prices.
func equilibriumQuote(book *OrderBook) common.Quote {
	bids := slices.Collect(book.Bids())
	asks := slices.Collect(book.Asks())

	lowestMatchedBid, highestMatchedAsk := math.Inf(1), math.Inf(-1)
	var i, j int
	var bidLeft, askLeft uint64
	if len(bids) > 0 {
		bidLeft = bids[0].Remaining
	}
	if len(asks) > 0 {
		askLeft = asks[0].Remaining
	}
	for i < len(bids) && j < len(asks) && bids[i].Price >= asks[j].Price {
		quantity := min(bidLeft, askLeft)
		lowestMatchedBid, highestMatchedAsk = bids[i].Price, asks[j].Price
		bidLeft -= quantity
		askLeft -= quantity
		if bidLeft == 0 {
			if i++; i < len(bids) {
				bidLeft = bids[i].Remaining
			}
		}
		if askLeft == 0 {
			if j++; j < len(asks) {
				askLeft = asks[j].Remaining
			}
		}
	}

	highestUnmatchedBid, lowestUnmatchedAsk := math.Inf(-1), math.Inf(1)
	if i < len(bids) {
		highestUnmatchedBid = bids[i].Price
	}
	if j < len(asks) {
		lowestUnmatchedAsk = asks[j].Price
	}
	return common.Quote{
		Ask: math.Min(lowestUnmatchedAsk, lowestMatchedBid),
		Bid: math.Max(highestMatchedAsk, highestUnmatchedBid),
	}
}
