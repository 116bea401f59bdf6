// Package simulation drives schools through time: it wires the grid, the
// map sets and the distribution strategies of every species, and runs
// replicates of the simulation.
package simulation

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/maps"
)

// Domain holds the inputs shared read-only by every replicate.
type Domain struct {
	Grid *grid.Grid
	// Maps[sp] is the map set of species sp, nil for random species.
	Maps []*maps.Set
}

// LoadDomain loads the grid and the map sets of every map-driven species.
// When movement checks are enabled and an output directory is set, the
// checks of every map set are written under it.
func LoadDomain(cfg *config.Config, logger *slog.Logger) (*Domain, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g, err := grid.Load(cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("load grid: %w", err)
	}
	logger.Info("grid loaded",
		"kind", cfg.Grid.Kind,
		"nx", g.NX(),
		"ny", g.NY(),
		"ocean_cells", g.NOceanCell(),
		"lat", []float32{g.LatMin(), g.LatMax()},
		"lon", []float32{g.LonMin(), g.LonMax()},
	)

	return NewDomain(cfg, g, logger)
}

// NewDomain builds the map sets over an already loaded grid.
func NewDomain(cfg *config.Config, g *grid.Grid, logger *slog.Logger) (*Domain, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Domain{Grid: g, Maps: make([]*maps.Set, len(cfg.Species))}
	for sp, spc := range cfg.Species {
		if spc.Method != config.MethodMaps {
			continue
		}
		set, err := maps.Load(g, cfg, sp, logger)
		if err != nil {
			return nil, fmt.Errorf("load maps: %w", err)
		}
		d.Maps[sp] = set
		logger.Info("map set loaded", "species", spc.Name, "maps", set.NMap())

		if cfg.Movement.ChecksEnabled && cfg.Output.Dir != "" {
			path, err := set.WriteChecks(cfg.Output.Dir, cfg.Output.Prefix, cfg.Output.Comma())
			if err != nil {
				return nil, err
			}
			logger.Info("movement checks written", "species", spc.Name, "path", path)
		}
	}
	return d, nil
}
