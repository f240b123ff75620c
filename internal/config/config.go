// Package config holds the resolved scalar parameters of a simulation. It
// does not read files; the command line and environment fill it in.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"auctionsim/internal/common"
	"auctionsim/internal/engine"
	"auctionsim/internal/market"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	StrategyZIC      = "zic"
	StrategyTruthful = "truthful"
)

// HouseSeller owns the reservation order of an ascending auction.
const HouseSeller common.AgentID = "house"

type Config struct {
	// Mechanism.
	Auctioneer      engine.Kind
	K               float64
	Fee             float64
	ShoutsVisible   bool
	ReservePrice    float64
	ReserveQuantity uint64

	// Protocol.
	MaxRounds     int
	Days          int
	ReplaceOrders bool

	// Population.
	Buyers       int
	Sellers      int
	Entitlement  uint64
	Strategy     string
	MinValuation float64
	MaxValuation float64
	MinPrice     float64
	MaxPrice     float64

	// Experiment.
	Seed    uint64
	Runs    int
	Workers uint

	// Serving.
	FeedAddress  string
	StepInterval time.Duration
}

func Default() Config {
	return Config{
		Auctioneer:      engine.KindClearingHouse,
		K:               0.5,
		ReservePrice:    50,
		ReserveQuantity: 1,
		MaxRounds:       100,
		Days:            1,
		ReplaceOrders:   true,
		Buyers:          10,
		Sellers:         10,
		Entitlement:     1,
		Strategy:        StrategyZIC,
		MinValuation:    50,
		MaxValuation:    150,
		MinPrice:        1,
		MaxPrice:        200,
		Seed:            1,
		Runs:            1,
		Workers:         4,
		FeedAddress:     "127.0.0.1:9001",
		StepInterval:    100 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(engine.Kinds, c.Auctioneer) {
		errs = append(errs, fmt.Errorf("auctioneer %q not one of %v", c.Auctioneer, engine.Kinds))
	}
	if c.K < 0 || c.K > 1 {
		errs = append(errs, fmt.Errorf("k %v outside [0, 1]", c.K))
	}
	if c.Fee < 0 {
		errs = append(errs, fmt.Errorf("fee %v is negative", c.Fee))
	}
	if c.Auctioneer == engine.KindAscending && (c.ReservePrice <= 0 || c.ReserveQuantity == 0) {
		errs = append(errs, errors.New("ascending auction needs a positive reserve price and quantity"))
	}
	if c.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("max rounds %d must be positive", c.MaxRounds))
	}
	if c.Days <= 0 {
		errs = append(errs, fmt.Errorf("days %d must be positive", c.Days))
	}
	if c.Buyers < 0 || c.Sellers < 0 || c.Buyers+c.Sellers == 0 {
		errs = append(errs, fmt.Errorf("need at least one trader, got %d buyers and %d sellers", c.Buyers, c.Sellers))
	}
	if c.Entitlement == 0 {
		errs = append(errs, errors.New("entitlement must be positive"))
	}
	if c.Strategy != StrategyZIC && c.Strategy != StrategyTruthful {
		errs = append(errs, fmt.Errorf("strategy %q not one of [%s %s]", c.Strategy, StrategyZIC, StrategyTruthful))
	}
	if c.MinValuation < 0 || c.MaxValuation < c.MinValuation {
		errs = append(errs, fmt.Errorf("valuation range [%v, %v] is invalid", c.MinValuation, c.MaxValuation))
	}
	if c.MinPrice <= 0 || c.MaxPrice < c.MinPrice {
		errs = append(errs, fmt.Errorf("price range [%v, %v] is invalid", c.MinPrice, c.MaxPrice))
	}
	if c.Runs <= 0 {
		errs = append(errs, fmt.Errorf("runs %d must be positive", c.Runs))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AuctioneerParams are the parameters handed to engine.New.
func (c Config) AuctioneerParams() engine.Params {
	return engine.Params{
		Kind: c.Auctioneer,
		K:    c.K,
		Options: engine.Options{
			ShoutsVisible: c.ShoutsVisible,
			Fee:           c.Fee,
		},
		Seller:          HouseSeller,
		ReservePrice:    c.ReservePrice,
		ReserveQuantity: c.ReserveQuantity,
	}
}

// MarketConfig is the market configuration of the run with the given seed.
func (c Config) MarketConfig(seed uint64) market.Config {
	return market.Config{
		MaxRounds:     c.MaxRounds,
		Seed:          seed,
		ReplaceOrders: c.ReplaceOrders,
	}
}
