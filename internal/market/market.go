package market

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"auctionsim/internal/common"
	"auctionsim/internal/engine"

	"github.com/rs/zerolog/log"
)

var (
	ErrAuctionClosed  = errors.New("auction closed")
	ErrMarketNotOpen  = errors.New("market not open")
	ErrDuplicateAgent = errors.New("agent already registered")
	ErrReservedAgent  = errors.New("agent id reserved by the auctioneer")
)

// Config are the resolved market scalars.
type Config struct {
	// MaxRounds closes the market once reached. Zero means unbounded.
	MaxRounds int
	// Seed drives the polling order.
	Seed uint64
	// ReplaceOrders cancels an agent's previous live order before it is
	// polled again.
	ReplaceOrders bool
}

// Market drives the round protocol over one auctioneer. It is not safe for
// concurrent use.
type Market struct {
	cfg        Config
	auctioneer engine.Auctioneer
	rng        *rand.Rand

	agents    []Agent
	byID      map[common.AgentID]Agent
	listeners []Listener

	state    State
	round    int
	tick     int
	live     map[common.AgentID][]*common.Order
	inactive map[common.AgentID]bool
}

func New(auctioneer engine.Auctioneer, cfg Config) *Market {
	return &Market{
		cfg:        cfg,
		auctioneer: auctioneer,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		byID:       make(map[common.AgentID]Agent),
		state:      Created,
		live:       make(map[common.AgentID][]*common.Order),
		inactive:   make(map[common.AgentID]bool),
	}
}

func (m *Market) RegisterAgent(agent Agent) error {
	if engine.Reserved(m.auctioneer, agent.ID()) {
		return fmt.Errorf("%w: %s", ErrReservedAgent, agent.ID())
	}
	if _, ok := m.byID[agent.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, agent.ID())
	}
	m.agents = append(m.agents, agent)
	m.byID[agent.ID()] = agent
	return nil
}

func (m *Market) AddListener(listener Listener) {
	m.listeners = append(m.listeners, listener)
}

func (m *Market) Agents() []Agent { return m.agents }

func (m *Market) Round() int                    { return m.round }
func (m *Market) MaxRounds() int                { return m.cfg.MaxRounds }
func (m *Market) State() State                  { return m.state }
func (m *Market) Quote() common.Quote           { return m.auctioneer.Quote() }
func (m *Market) Auctioneer() engine.Auctioneer { return m.auctioneer }

// Outstanding is the unfilled quantity of the agent's live orders.
func (m *Market) Outstanding(id common.AgentID) uint64 {
	var quantity uint64
	for _, order := range m.live[id] {
		quantity += order.Remaining
	}
	return quantity
}

// Begin opens the market. No agent is polled.
func (m *Market) Begin() error {
	if m.state != Created {
		return fmt.Errorf("%w: begin in state %s", ErrMarketNotOpen, m.state)
	}
	m.state = Open
	log.Debug().
		Str("auctioneer", string(m.auctioneer.Kind())).
		Int("agents", len(m.agents)).
		Msg("market open")
	return m.publish(MarketOpened{Round: m.round})
}

// Step runs one full round: poll, close, clear, advance. An error from a
// listener aborts the round without advancing the round counter.
func (m *Market) Step() error {
	switch m.state {
	case Open:
	case Closed:
		return ErrAuctionClosed
	default:
		return fmt.Errorf("%w: step in state %s", ErrMarketNotOpen, m.state)
	}

	if err := m.step(); err != nil {
		if m.state != Closed {
			m.state = Open
		}
		return err
	}
	return nil
}

func (m *Market) step() error {
	m.state = Polling
	for _, agent := range m.pollOrder() {
		if err := m.poll(agent); err != nil {
			return err
		}
	}

	m.state = Closing
	if err := m.publish(RoundClosing{Round: m.round}); err != nil {
		return err
	}

	m.state = Clearing
	if err := m.clear(); err != nil {
		return err
	}

	m.state = Cleared
	if err := m.publish(RoundClosed{Round: m.round}); err != nil {
		return err
	}
	m.round++

	if m.cfg.MaxRounds > 0 && m.round >= m.cfg.MaxRounds {
		m.state = Closed
		log.Debug().Int("rounds", m.round).Msg("market closed")
		return m.publish(MarketClosed{Round: m.round})
	}
	m.state = Open
	return nil
}

// pollOrder snapshots the active agents and shuffles them. An agent whose
// entitlement runs out during this round is still in this round's snapshot
// and drops out from the next one, losing its resting orders.
func (m *Market) pollOrder() []Agent {
	active := make([]Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		if m.inactive[agent.ID()] {
			continue
		}
		if !agent.IsActive() {
			m.inactive[agent.ID()] = true
			m.cancel(agent.ID())
			continue
		}
		active = append(active, agent)
	}
	m.rng.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	return active
}

func (m *Market) poll(agent Agent) error {
	id := agent.ID()
	if m.cfg.ReplaceOrders {
		m.cancel(id)
	}

	m.tick++
	requested := agent.RequestOrder(m)
	if requested == nil {
		return nil
	}
	// Stamp a copy so a resubmitted live order is never touched.
	order := new(common.Order)
	*order = *requested
	order.Owner = id
	order.Round = m.round
	order.Tick = m.tick

	err := m.auctioneer.NewOrder(order)
	if err == nil {
		m.live[id] = append(m.live[id], order)
	}
	if perr := m.publish(OrderReceived{Round: m.round, Order: order, Err: err}); perr != nil {
		return perr
	}
	if err != nil {
		if errors.Is(err, engine.ErrFatalMarketState) {
			return err
		}
		log.Debug().Err(err).Str("agent", string(id)).Int("round", m.round).Msg("order rejected")
		return nil
	}

	if err := m.publish(OrderPlaced{Round: m.round, Order: order}); err != nil {
		return err
	}
	m.auctioneer.GenerateQuote()

	if c, ok := m.auctioneer.(engine.Continuous); ok && c.Continuous() {
		return m.clear()
	}
	return nil
}

func (m *Market) clear() error {
	txs, err := m.auctioneer.Clear(m.round)
	if err != nil {
		return fmt.Errorf("clearing round %d: %w", m.round, err)
	}

	for _, tx := range txs {
		m.forget(tx.Bid)
		m.forget(tx.Ask)
		if buyer, ok := m.byID[tx.Buyer()]; ok {
			buyer.NotifyTransaction(tx)
		}
		if seller, ok := m.byID[tx.Seller()]; ok {
			seller.NotifyTransaction(tx)
		}
		if err := m.publish(TransactionExecuted{Transaction: tx}); err != nil {
			return err
		}
	}
	return nil
}

// forget drops a fully matched order from the live set.
func (m *Market) forget(order *common.Order) {
	if order.Remaining > 0 {
		return
	}
	live := slices.DeleteFunc(m.live[order.Owner], func(o *common.Order) bool {
		return o == order
	})
	if len(live) == 0 {
		delete(m.live, order.Owner)
		return
	}
	m.live[order.Owner] = live
}

// cancel removes every live order of the agent from the book.
func (m *Market) cancel(id common.AgentID) {
	for _, order := range m.live[id] {
		m.auctioneer.RemoveOrder(order)
	}
	delete(m.live, id)
}

func (m *Market) publish(event Event) error {
	for _, listener := range m.listeners {
		if err := listener.OnEvent(event); err != nil {
			return fmt.Errorf("listener %T on %T: %w", listener, event, err)
		}
	}
	return nil
}

// Reset starts a new day: the book is emptied, the round counter zeroed and
// the market returns to Created. Agents, listeners and the auctioneer (with
// its accounts) are kept. The polling source is not reseeded.
func (m *Market) Reset() error {
	if err := m.auctioneer.Reset(); err != nil {
		return err
	}
	m.round = 0
	m.tick = 0
	m.live = make(map[common.AgentID][]*common.Order)
	m.inactive = make(map[common.AgentID]bool)
	for _, agent := range m.agents {
		if r, ok := agent.(Resetter); ok {
			r.Reset()
		}
	}
	m.state = Created
	return nil
}

// Run steps until the market closes or ctx is cancelled between rounds.
func (m *Market) Run(ctx context.Context) error {
	if m.state == Created {
		if err := m.Begin(); err != nil {
			return err
		}
	}
	for m.state != Closed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

var _ View = (*Market)(nil)
