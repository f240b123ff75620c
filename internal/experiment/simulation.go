package experiment

import (
	"context"
	"fmt"
	"math/rand/v2"

	"auctionsim/internal/agent"
	"auctionsim/internal/common"
	"auctionsim/internal/config"
	"auctionsim/internal/engine"
	"auctionsim/internal/market"
	"auctionsim/internal/report"
	"auctionsim/internal/stats"
)

// Simulation is one fully wired market: auctioneer, traders and the
// recorder collecting its statistics.
type Simulation struct {
	Seed       uint64
	Market     *market.Market
	Recorder   *report.Recorder
	Valuations []stats.Valuation
}

// Summary is the outcome of one simulation run.
type Summary struct {
	Seed              uint64
	Days              int
	Rounds            int
	Received          int
	Placed            int
	Transactions      int
	Volume            uint64
	MeanPrice         float64
	Equilibrium       stats.Equilibrium
	Efficiency        float64
	AuctioneerBalance float64
}

// Build wires a simulation from cfg. Valuations and every agent's own
// randomness derive from seed, so equal seeds build equal simulations.
func Build(cfg config.Config, seed uint64) (*Simulation, error) {
	auctioneer, err := engine.New(cfg.AuctioneerParams())
	if err != nil {
		return nil, fmt.Errorf("building auctioneer: %w", err)
	}
	m := market.New(auctioneer, cfg.MarketConfig(seed))
	sim := &Simulation{
		Seed:     seed,
		Market:   m,
		Recorder: report.NewRecorder(),
	}
	m.AddListener(sim.Recorder)

	valuations := rand.New(rand.NewPCG(seed, 0))
	var stream uint64
	addTraders := func(n int, side common.Side, prefix string) error {
		for i := range n {
			stream++
			id := common.AgentID(fmt.Sprintf("%s-%d", prefix, i))
			value := cfg.MinValuation + valuations.Float64()*(cfg.MaxValuation-cfg.MinValuation)

			var trader interface {
				market.Agent
				stats.Valued
			}
			switch cfg.Strategy {
			case config.StrategyTruthful:
				trader = agent.NewTruthful(id, side, value, cfg.Entitlement)
			default:
				rng := rand.New(rand.NewPCG(seed, stream))
				trader = agent.NewZIC(id, side, value, cfg.Entitlement, cfg.MinPrice, cfg.MaxPrice, rng)
			}
			if err := m.RegisterAgent(trader); err != nil {
				return err
			}
			sim.Valuations = append(sim.Valuations, stats.ValuationOf(trader))
		}
		return nil
	}

	if err := addTraders(cfg.Buyers, common.Bid, "buyer"); err != nil {
		return nil, err
	}
	// The house is the only seller of an ascending auction.
	if cfg.Auctioneer == engine.KindAscending {
		sim.Valuations = append(sim.Valuations, stats.Valuation{
			Owner: config.HouseSeller,
			Side:  common.Ask,
			Value: cfg.ReservePrice,
			Units: cfg.ReserveQuantity,
		})
	} else if err := addTraders(cfg.Sellers, common.Ask, "seller"); err != nil {
		return nil, err
	}
	return sim, nil
}

// Run plays days market days, resetting the market between them.
func (s *Simulation) Run(ctx context.Context, days int) (Summary, error) {
	for day := range days {
		if day > 0 {
			if err := s.Market.Reset(); err != nil {
				return Summary{}, fmt.Errorf("resetting for day %d: %w", day, err)
			}
		}
		if err := s.Market.Run(ctx); err != nil {
			return Summary{}, fmt.Errorf("day %d: %w", day, err)
		}
	}
	return s.Summary(days), nil
}

// Summary condenses what the recorder saw over days days.
func (s *Simulation) Summary(days int) Summary {
	totals := s.Recorder.Totals()
	eq := stats.ComputeEquilibrium(s.Valuations)
	realised := stats.RealisedSurplus(s.Recorder.Transactions(), s.Valuations)
	if days > 0 {
		realised /= float64(days)
	}
	return Summary{
		Seed:              s.Seed,
		Days:              days,
		Rounds:            days * s.Market.MaxRounds(),
		Received:          totals.Received,
		Placed:            totals.Placed,
		Transactions:      totals.Transactions,
		Volume:            totals.Volume,
		MeanPrice:         s.Recorder.MeanPrice(),
		Equilibrium:       eq,
		Efficiency:        stats.Efficiency(realised, eq),
		AuctioneerBalance: s.Market.Auctioneer().Account().Balance(),
	}
}
