package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auctionsim/internal/config"
	"auctionsim/internal/engine"
	"auctionsim/internal/experiment"
	"auctionsim/internal/market"
	"auctionsim/internal/report"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "auctionsim",
		Usage:  "round based double auction simulator",
		Flags:  globalFlags(),
		Before: setupLogging,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "play independent seeded runs in parallel and summarise them",
				Flags:  simulationFlags(),
				Action: runExperiment,
			},
			{
				Name:   "serve",
				Usage:  "play one run at a fixed pace and stream its events over a websocket",
				Flags:  append(simulationFlags(), serveFlags()...),
				Action: serveFeed,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("auctionsim failed")
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "zerolog level", EnvVars: []string{"AUCTIONSIM_LOG_LEVEL"}},
		&cli.BoolFlag{Name: "log-json", Usage: "log JSON instead of console output", EnvVars: []string{"AUCTIONSIM_LOG_JSON"}},
	}
}

func simulationFlags() []cli.Flag {
	d := config.Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "auctioneer", Value: string(d.Auctioneer), Usage: fmt.Sprintf("one of %v", engine.Kinds), EnvVars: []string{"AUCTIONSIM_AUCTIONEER"}},
		&cli.Float64Flag{Name: "k", Value: d.K, Usage: "pricing weight of the bid, in [0, 1]", EnvVars: []string{"AUCTIONSIM_K"}},
		&cli.Float64Flag{Name: "fee", Value: d.Fee, Usage: "per unit fee charged to both sides", EnvVars: []string{"AUCTIONSIM_FEE"}},
		&cli.BoolFlag{Name: "shouts-visible", Value: d.ShoutsVisible, Usage: "let agents see individual shouts", EnvVars: []string{"AUCTIONSIM_SHOUTS_VISIBLE"}},
		&cli.Float64Flag{Name: "reserve-price", Value: d.ReservePrice, Usage: "ascending auction reserve price", EnvVars: []string{"AUCTIONSIM_RESERVE_PRICE"}},
		&cli.Uint64Flag{Name: "reserve-quantity", Value: d.ReserveQuantity, Usage: "ascending auction units for sale", EnvVars: []string{"AUCTIONSIM_RESERVE_QUANTITY"}},
		&cli.IntFlag{Name: "rounds", Value: d.MaxRounds, Usage: "rounds per day", EnvVars: []string{"AUCTIONSIM_ROUNDS"}},
		&cli.IntFlag{Name: "days", Value: d.Days, Usage: "days per run", EnvVars: []string{"AUCTIONSIM_DAYS"}},
		&cli.BoolFlag{Name: "replace-orders", Value: d.ReplaceOrders, Usage: "cancel an agent's live order before polling it again", EnvVars: []string{"AUCTIONSIM_REPLACE_ORDERS"}},
		&cli.IntFlag{Name: "buyers", Value: d.Buyers, EnvVars: []string{"AUCTIONSIM_BUYERS"}},
		&cli.IntFlag{Name: "sellers", Value: d.Sellers, EnvVars: []string{"AUCTIONSIM_SELLERS"}},
		&cli.Uint64Flag{Name: "entitlement", Value: d.Entitlement, Usage: "units each trader may trade per day", EnvVars: []string{"AUCTIONSIM_ENTITLEMENT"}},
		&cli.StringFlag{Name: "strategy", Value: d.Strategy, Usage: "zic or truthful", EnvVars: []string{"AUCTIONSIM_STRATEGY"}},
		&cli.Float64Flag{Name: "min-valuation", Value: d.MinValuation, EnvVars: []string{"AUCTIONSIM_MIN_VALUATION"}},
		&cli.Float64Flag{Name: "max-valuation", Value: d.MaxValuation, EnvVars: []string{"AUCTIONSIM_MAX_VALUATION"}},
		&cli.Float64Flag{Name: "min-price", Value: d.MinPrice, EnvVars: []string{"AUCTIONSIM_MIN_PRICE"}},
		&cli.Float64Flag{Name: "max-price", Value: d.MaxPrice, EnvVars: []string{"AUCTIONSIM_MAX_PRICE"}},
		&cli.Uint64Flag{Name: "seed", Value: d.Seed, EnvVars: []string{"AUCTIONSIM_SEED"}},
		&cli.IntFlag{Name: "runs", Value: d.Runs, EnvVars: []string{"AUCTIONSIM_RUNS"}},
		&cli.UintFlag{Name: "workers", Value: d.Workers, EnvVars: []string{"AUCTIONSIM_WORKERS"}},
	}
}

func serveFlags() []cli.Flag {
	d := config.Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "address", Value: d.FeedAddress, Usage: "feed listen address", EnvVars: []string{"AUCTIONSIM_FEED_ADDRESS"}},
		&cli.DurationFlag{Name: "step-interval", Value: d.StepInterval, Usage: "pause between rounds", EnvVars: []string{"AUCTIONSIM_STEP_INTERVAL"}},
	}
}

func setupLogging(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	if !c.Bool("log-json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return nil
}

func configFromContext(c *cli.Context) config.Config {
	cfg := config.Default()
	cfg.Auctioneer = engine.Kind(c.String("auctioneer"))
	cfg.K = c.Float64("k")
	cfg.Fee = c.Float64("fee")
	cfg.ShoutsVisible = c.Bool("shouts-visible")
	cfg.ReservePrice = c.Float64("reserve-price")
	cfg.ReserveQuantity = c.Uint64("reserve-quantity")
	cfg.MaxRounds = c.Int("rounds")
	cfg.Days = c.Int("days")
	cfg.ReplaceOrders = c.Bool("replace-orders")
	cfg.Buyers = c.Int("buyers")
	cfg.Sellers = c.Int("sellers")
	cfg.Entitlement = c.Uint64("entitlement")
	cfg.Strategy = c.String("strategy")
	cfg.MinValuation = c.Float64("min-valuation")
	cfg.MaxValuation = c.Float64("max-valuation")
	cfg.MinPrice = c.Float64("min-price")
	cfg.MaxPrice = c.Float64("max-price")
	cfg.Seed = c.Uint64("seed")
	cfg.Runs = c.Int("runs")
	cfg.Workers = c.Uint("workers")
	if c.IsSet("address") {
		cfg.FeedAddress = c.String("address")
	}
	if c.IsSet("step-interval") {
		cfg.StepInterval = c.Duration("step-interval")
	}
	return cfg
}

func runExperiment(c *cli.Context) error {
	cfg := configFromContext(c)
	runner := experiment.NewRunner(cfg)
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		runner.Listeners = func(seed uint64) []market.Listener {
			return []market.Listener{report.NewLogger(log.With().Uint64("seed", seed).Logger())}
		}
	}

	start := time.Now()
	summaries, err := runner.Run(c.Context)
	if err != nil {
		return err
	}

	var efficiency float64
	var counted int
	for _, s := range summaries {
		logSummary(s)
		if !math.IsNaN(s.Efficiency) {
			efficiency += s.Efficiency
			counted++
		}
	}
	ev := log.Info().
		Str("auctioneer", string(cfg.Auctioneer)).
		Int("runs", len(summaries)).
		Dur("elapsed", time.Since(start))
	if counted > 0 {
		ev = ev.Float64("mean_efficiency", efficiency/float64(counted))
	}
	ev.Msg("experiment finished")
	return nil
}

func logSummary(s experiment.Summary) {
	ev := log.Info().
		Uint64("seed", s.Seed).
		Int("rounds", s.Rounds).
		Int("received", s.Received).
		Int("placed", s.Placed).
		Int("transactions", s.Transactions).
		Uint64("volume", s.Volume).
		Float64("mean_price", s.MeanPrice).
		Float64("auctioneer_balance", s.AuctioneerBalance).
		Bool("equilibrium", s.Equilibrium.Exists)
	if s.Equilibrium.Exists {
		ev = ev.
			Float64("equilibrium_price", s.Equilibrium.Price()).
			Uint64("equilibrium_quantity", s.Equilibrium.Quantity).
			Float64("efficiency", s.Efficiency)
	}
	ev.Msg("run summary")
}

func serveFeed(c *cli.Context) error {
	cfg := configFromContext(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	sim, err := experiment.Build(cfg, cfg.Seed)
	if err != nil {
		return err
	}
	feed := report.NewFeed(0)
	sim.Market.AddListener(feed)
	sim.Market.AddListener(report.NewLogger(log.Logger))

	mux := http.NewServeMux()
	mux.Handle("/feed", feed)
	srv := &http.Server{Addr: cfg.FeedAddress, Handler: mux}
	go func() {
		log.Info().Str("address", cfg.FeedAddress).Msg("feed listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("feed server stopped")
		}
	}()
	defer func() {
		feed.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("unable to shut down feed server")
		}
	}()

	if err := pace(c.Context, sim, cfg); err != nil {
		return err
	}
	logSummary(sim.Summary(cfg.Days))
	return nil
}

// pace steps the market once per tick so subscribers can follow along.
func pace(ctx context.Context, sim *experiment.Simulation, cfg config.Config) error {
	ticker := time.NewTicker(cfg.StepInterval)
	defer ticker.Stop()

	m := sim.Market
	for day := range cfg.Days {
		if day > 0 {
			if err := m.Reset(); err != nil {
				return err
			}
		}
		if err := m.Begin(); err != nil {
			return err
		}
		for m.State() != market.Closed {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := m.Step(); err != nil {
					return err
				}
			}
		}
		log.Info().Int("day", day).Msg("day finished")
	}
	return nil
}
