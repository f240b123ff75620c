package experiment

import (
	"context"
	"errors"
	"fmt"

	"auctionsim/internal/config"
	"auctionsim/internal/market"
	"auctionsim/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

var ErrImproperTask = errors.New("improper task type")

// Runner plays independent simulations in parallel, one per seed. Runs share
// nothing, so results only depend on the configuration and seed.
type Runner struct {
	cfg config.Config
	// Listeners, when set, adds extra listeners to the run with the given seed.
	Listeners func(seed uint64) []market.Listener
}

func NewRunner(cfg config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run plays cfg.Runs simulations seeded cfg.Seed, cfg.Seed+1, ... and returns
// their summaries in seed order. The first failing run stops the rest.
func (r *Runner) Run(ctx context.Context) ([]Summary, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	t, ctx := tomb.WithContext(ctx)
	pool := utils.NewWorkerPool(r.cfg.Workers)
	summaries := make([]Summary, r.cfg.Runs)

	pool.Setup(t, func(t *tomb.Tomb, task any) error {
		run, ok := task.(int)
		if !ok {
			return ErrImproperTask
		}
		summary, err := r.simulate(ctx, r.cfg.Seed+uint64(run))
		if err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
		// Each run owns its slot.
		summaries[run] = summary
		return nil
	})

	for run := range r.cfg.Runs {
		if !pool.AddTask(t, run) {
			break
		}
	}
	pool.Close()

	if err := t.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *Runner) simulate(ctx context.Context, seed uint64) (Summary, error) {
	sim, err := Build(r.cfg, seed)
	if err != nil {
		return Summary{}, err
	}
	if r.Listeners != nil {
		for _, l := range r.Listeners(seed) {
			sim.Market.AddListener(l)
		}
	}

	summary, err := sim.Run(ctx, r.cfg.Days)
	if err != nil {
		return Summary{}, err
	}
	log.Debug().
		Uint64("seed", seed).
		Int("transactions", summary.Transactions).
		Float64("efficiency", summary.Efficiency).
		Msg("run finished")
	return summary, nil
}
