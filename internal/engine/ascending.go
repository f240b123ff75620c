package engine

import (
	"fmt"

	"auctionsim/internal/common"
)

// Ascending is an English auction for a single seller. The seller's
// reservation is seeded as the only ask; traders may only bid, and each bid
// must improve on the best bid in the book.
type Ascending struct {
	core
	pricing      PricingPolicy
	seller       common.AgentID
	reservePrice float64
	quantity     uint64
	reservation  *common.Order
}

func NewAscending(pricing PricingPolicy, seller common.AgentID, reservePrice float64, quantity uint64, opts Options) (*Ascending, error) {
	a := &Ascending{
		core:         newCore(KindAscending, opts),
		pricing:      pricing,
		seller:       seller,
		reservePrice: reservePrice,
		quantity:     quantity,
	}
	if err := a.seed(); err != nil {
		return nil, err
	}
	return a, nil
}

// seed places the seller's reservation order directly in the book, bypassing
// the bid-only check.
func (a *Ascending) seed() error {
	reservation := common.NewOrder(a.seller, common.Ask, a.reservePrice, a.quantity)
	if err := checkOrder(reservation); err != nil {
		return fmt.Errorf("%w: seeding reservation: %w", ErrFatalMarketState, err)
	}
	if err := a.book.Insert(reservation); err != nil {
		return fmt.Errorf("%w: seeding reservation: %w", ErrFatalMarketState, err)
	}
	a.reservation = reservation
	a.GenerateQuote()
	return nil
}

func (a *Ascending) NewOrder(order *common.Order) error {
	return a.accept(order, a.checkValidity)
}

func (a *Ascending) checkValidity(order *common.Order) error {
	if order.IsAsk() {
		return ErrInvalidSide
	}
	if best, ok := a.book.HighestBid(); ok && order.Price <= best.Price {
		return fmt.Errorf("%w: bid %v does not improve on %v", ErrInvalidOrder, order.Price, best.Price)
	}
	return nil
}

// Reservation returns the seeded seller order.
func (a *Ascending) Reservation() *common.Order { return a.reservation }

// Clear sells to the highest bids at or above the reserve.
func (a *Ascending) Clear(round int) ([]common.Transaction, error) {
	defer a.GenerateQuote()

	matches, err := a.matchTop()
	if err != nil {
		return nil, err
	}
	return a.transact(round, matches, func(m match) (float64, error) {
		return a.pricing.Price(m.bid.Price, m.ask.Price)
	})
}

func (a *Ascending) GenerateQuote() common.Quote {
	a.quote = equilibriumQuote(a.book)
	return a.quote
}

func (a *Ascending) Reset() error {
	a.reset()
	return a.seed()
}

var _ Auctioneer = (*Ascending)(nil)
