package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/simulation"
	"github.com/pthm-cable/shoal/store"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config copy")
	database := flag.String("database", "", "SQLite file recording school positions")
	replicates := flag.Int("replicates", 0, "Number of replicates (0 = use config)")
	workers := flag.Int("workers", -1, "Concurrent replicates per batch (0 = GOMAXPROCS, -1 = use config)")
	seed := flag.Int64("seed", 0, "Base seed for fixed-seed mode (0 = use config)")
	fixedSeed := flag.Bool("fixed-seed", false, "Seed movement streams deterministically")
	steps := flag.Int("steps", 0, "Stop each replicate after N steps (0 = all)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags given explicitly win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output-dir":
			cfg.Output.Dir = *outputDir
		case "database":
			cfg.Output.Database = *database
		case "replicates":
			if *replicates > 0 {
				cfg.Simulation.Replicates = *replicates
			}
		case "workers":
			if *workers >= 0 {
				cfg.Simulation.Workers = *workers
			}
		case "seed":
			if *seed != 0 {
				cfg.Simulation.Seed = *seed
			}
		case "fixed-seed":
			cfg.Movement.FixedSeed = *fixedSeed
		}
	})
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *steps, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, steps int, logger *slog.Logger) error {
	domain, err := simulation.LoadDomain(cfg, logger)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Output.Database != "" {
		st, err = store.Open(cfg.Output.Database)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	logger.Info("starting simulation",
		"replicates", cfg.Simulation.Replicates,
		"workers", cfg.Simulation.Workers,
		"steps", cfg.Derived.NStep,
		"species", len(cfg.Species),
		"fixed_seed", cfg.Movement.FixedSeed,
		"seed", cfg.Simulation.Seed,
	)

	return simulation.RunReplicates(ctx, cfg.Simulation.Replicates, cfg.Simulation.Workers,
		func(ctx context.Context, r int) error {
			sim, err := simulation.New(cfg, domain, simulation.Options{
				Replicate: r,
				Steps:     steps,
				Logger:    logger,
				Store:     st,
			})
			if err != nil {
				return err
			}
			return sim.Run(ctx)
		}, logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
