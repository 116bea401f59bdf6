package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/movement"
	"github.com/pthm-cable/shoal/population"
	"github.com/pthm-cable/shoal/store"
	"github.com/pthm-cable/shoal/telemetry"
)

// Options configures one replicate.
type Options struct {
	Replicate int
	// Steps limits the run; 0 runs every configured step.
	Steps  int
	Logger *slog.Logger
	// Store records positions every step when non-nil. It may be shared.
	Store *store.Store
}

// Simulation is one replicate. It is not safe for concurrent use.
type Simulation struct {
	cfg       *config.Config
	domain    *Domain
	replicate int
	nStep     int
	logger    *slog.Logger

	dists      []movement.Distribution
	pop        *population.Population
	collector  *telemetry.Collector
	perf       *telemetry.PerfCollector
	output     *telemetry.OutputManager
	store      *store.Store
	runID      int64
	lastStep   int
	speciesTab []string
}

// New sets up replicate opts.Replicate over a loaded domain.
func New(cfg *config.Config, domain *Domain, opts Options) (*Simulation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("replicate", opts.Replicate)

	names := make([]string, len(cfg.Species))
	for i, sp := range cfg.Species {
		names[i] = sp.Name
	}

	nStep := cfg.Derived.NStep
	if opts.Steps > 0 && opts.Steps < nStep {
		nStep = opts.Steps
	}

	s := &Simulation{
		cfg:        cfg,
		domain:     domain,
		replicate:  opts.Replicate,
		nStep:      nStep,
		logger:     logger,
		pop:        population.New(domain.Grid, names, cfg.Derived.LifespanDt),
		collector:  telemetry.NewCollector(opts.Replicate, names, domain.Grid.NCell()),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		store:      opts.Store,
		lastStep:   -1,
		speciesTab: names,
	}

	mopts := movement.Options{Logger: logger, Recorder: s.collector}
	s.dists = make([]movement.Distribution, len(cfg.Species))
	for sp := range cfg.Species {
		d, err := movement.New(cfg, sp, domain.Grid, domain.Maps[sp], mopts)
		if err != nil {
			return nil, err
		}
		s.dists[sp] = d
	}

	if cfg.Output.Dir != "" {
		om, err := telemetry.NewOutputManager(telemetry.ReplicateDir(cfg.Output.Dir, opts.Replicate), cfg.Output.Comma())
		if err != nil {
			return nil, err
		}
		s.output = om
		if err := om.WriteConfig(cfg); err != nil {
			logger.Error("failed to write config", "error", err)
		}
	}

	if s.store != nil {
		id, err := s.store.BeginRun(opts.Replicate, cfg.Simulation.Seed, cfg.Movement.FixedSeed, nStep)
		if err != nil {
			s.output.Close()
			return nil, err
		}
		s.runID = id
	}

	return s, nil
}

// Population returns the schools of the replicate.
func (s *Simulation) Population() *population.Population { return s.pop }

// NStep returns the number of steps Run executes.
func (s *Simulation) NStep() int { return s.nStep }

// RunID returns the store run id, or 0 without a store.
func (s *Simulation) RunID() int64 { return s.runID }

// Step spawns new schools, moves every school of every species, records the
// step and ages the population.
func (s *Simulation) Step(ctx context.Context, step int) error {
	s.perf.StartStep()

	s.perf.StartPhase(telemetry.PhaseSpawn)
	for sp, spc := range s.cfg.Species {
		if spc.Schools == 0 {
			continue
		}
		if err := s.pop.Spawn(sp, spc.Schools, 0); err != nil {
			return err
		}
		s.perf.AddSchools(spc.Schools)
	}

	s.perf.StartPhase(telemetry.PhaseMovement)
	for sp, d := range s.dists {
		if err := ctx.Err(); err != nil {
			return err
		}
		schools := s.pop.Schools(sp)
		for _, school := range schools {
			if err := d.Move(school, step); err != nil {
				return fmt.Errorf("replicate %d step %d: %w", s.replicate, step, err)
			}
		}
		s.perf.AddSchools(len(schools))
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	flush := s.collector.ShouldFlush(step, s.cfg.Telemetry.StatsInterval)
	var records []population.Record
	if flush || s.store != nil {
		records = s.pop.Snapshot()
	}
	if flush {
		stats := s.collector.Flush(step, s.domain.Grid, records)
		for _, st := range stats {
			s.logger.Debug("stats", "stats", st)
		}
		if err := s.output.WriteStats(stats); err != nil {
			s.logger.Error("failed to write stats", "error", err)
		}
	}

	s.perf.StartPhase(telemetry.PhaseStore)
	if s.store != nil {
		if err := s.store.SavePositions(s.runID, step, store.FromRecords(records, s.speciesTab)); err != nil {
			return fmt.Errorf("replicate %d step %d: %w", s.replicate, step, err)
		}
		s.perf.AddSchools(len(records))
	}

	s.perf.StartPhase(telemetry.PhaseAging)
	s.perf.AddSchools(s.pop.Age())

	s.perf.EndStep()
	s.lastStep = step

	if w := s.cfg.Telemetry.PerfWindow; w > 0 && (step+1)%w == 0 {
		perfStats := s.perf.Stats()
		s.logger.Debug("perf", "perf", perfStats)
		if err := s.output.WritePerf(perfStats, s.replicate, step); err != nil {
			s.logger.Error("failed to write perf", "error", err)
		}
	}
	return nil
}

// Run executes every step, checking ctx between steps, then closes the
// replicate.
func (s *Simulation) Run(ctx context.Context) error {
	s.logger.Info("replicate started", "steps", s.nStep, "fixed_seed", s.cfg.Movement.FixedSeed)

	var runErr error
	for step := 0; step < s.nStep; step++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := s.Step(ctx, step); err != nil {
			runErr = err
			break
		}
	}

	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	s.logger.Info("replicate finished", "steps", s.nStep, "schools", s.pop.Len())
	return nil
}

// Close writes the final snapshot, ends the store run and closes the output
// files.
func (s *Simulation) Close() error {
	var firstErr error
	if s.output != nil && s.lastStep >= 0 {
		snap := &telemetry.Snapshot{
			Version:   telemetry.SnapshotVersion,
			Seed:      s.cfg.Simulation.Seed,
			FixedSeed: s.cfg.Movement.FixedSeed,
			Replicate: s.replicate,
			Step:      s.lastStep,
			NX:        s.domain.Grid.NX(),
			NY:        s.domain.Grid.NY(),
			Species:   s.speciesTab,
			Schools:   telemetry.SchoolStates(s.pop.Snapshot()),
		}
		if _, err := telemetry.SaveSnapshot(snap, s.output.Dir()); err != nil {
			firstErr = err
		}
	}
	if s.store != nil && s.lastStep >= 0 {
		if err := s.store.EndRun(s.runID, s.lastStep); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.output.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.output = nil
	return firstErr
}
