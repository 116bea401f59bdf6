package config

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, key, fmt.Sprintf(format, args...))
}

// Validate checks every parameter consumed by the grid and movement code.
// The returned error names the offending key.
func (c *Config) Validate() error {
	sim := c.Simulation
	if sim.NStepYear < 1 {
		return invalid("simulation.n_step_year", "must be >= 1, got %d", sim.NStepYear)
	}
	if sim.NYear < 1 {
		return invalid("simulation.n_year", "must be >= 1, got %d", sim.NYear)
	}
	if sim.Replicates < 1 {
		return invalid("simulation.replicates", "must be >= 1, got %d", sim.Replicates)
	}
	if sim.Workers < 0 {
		return invalid("simulation.workers", "must be >= 0, got %d", sim.Workers)
	}

	if err := c.validateGrid(); err != nil {
		return err
	}

	if len(c.Species) == 0 {
		return invalid("species", "at least one species is required")
	}
	seen := make(map[string]bool, len(c.Species))
	for i, sp := range c.Species {
		key := fmt.Sprintf("species[%d]", i)
		if sp.Name == "" {
			return invalid(key+".name", "must not be empty")
		}
		if seen[sp.Name] {
			return invalid(key+".name", "duplicate species %q", sp.Name)
		}
		seen[sp.Name] = true

		if c.Derived.LifespanDt != nil && c.Derived.LifespanDt[i] < 1 {
			return invalid(key+".lifespan", "must cover at least one time step, got %g years", sp.Lifespan)
		}
		if sp.Range < 0 {
			return invalid(key+".range", "must be >= 0, got %d", sp.Range)
		}
		if sp.Schools < 0 {
			return invalid(key+".schools", "must be >= 0, got %d", sp.Schools)
		}

		switch sp.Method {
		case MethodMaps, "":
			if len(sp.Maps) == 0 {
				return invalid(key+".maps", "method %q requires at least one map", MethodMaps)
			}
			for j, m := range sp.Maps {
				if err := c.validateMap(fmt.Sprintf("%s.maps[%d]", key, j), m); err != nil {
					return err
				}
			}
		case MethodRandom:
			if sp.NCell < 0 {
				return invalid(key+".ncell", "must be >= 0, got %d", sp.NCell)
			}
		default:
			return invalid(key+".method", "unknown method %q", sp.Method)
		}
	}

	switch sep := c.Output.Separator; {
	case sep == "", sep == `\t`, sep == "tab":
	case utf8.RuneCountInString(sep) != 1:
		return invalid("output.separator", "must be a single character, got %q", sep)
	}

	if c.Telemetry.StatsInterval < 0 {
		return invalid("telemetry.stats_interval", "must be >= 0, got %d", c.Telemetry.StatsInterval)
	}
	return nil
}

func (c *Config) validateGrid() error {
	g := c.Grid
	switch g.Kind {
	case GridRegular:
		r := g.Regular
		if r.NLine < 1 {
			return invalid("grid.regular.n_line", "must be >= 1, got %d", r.NLine)
		}
		if r.NColumn < 1 {
			return invalid("grid.regular.n_column", "must be >= 1, got %d", r.NColumn)
		}
		if r.UpLeftLat == r.LowRightLat {
			return invalid("grid.regular.upleft_lat", "must differ from lowright_lat")
		}
		if r.UpLeftLon == r.LowRightLon {
			return invalid("grid.regular.upleft_lon", "must differ from lowright_lon")
		}
	case GridNetCDF, GridStrided:
		n := g.NetCDF
		if n.File == "" {
			return invalid("grid.netcdf.file", "must not be empty")
		}
		if n.VarLat == "" || n.VarLon == "" || n.VarMask == "" {
			return invalid("grid.netcdf", "var_lat, var_lon and var_mask are required")
		}
		if g.Kind == GridStrided && n.Stride < 1 {
			return invalid("grid.netcdf.stride", "must be >= 1, got %d", n.Stride)
		}
	default:
		return invalid("grid.kind", "unknown grid kind %q", g.Kind)
	}
	return nil
}

func (c *Config) validateMap(key string, m MapConfig) error {
	if m.File == "" {
		return invalid(key+".file", "must not be empty (use %q for no map)", NullFile)
	}
	if m.LastAge < m.InitialAge {
		return invalid(key+".last_age", "must be >= initial_age")
	}
	if m.InitialAge < 0 {
		return invalid(key+".initial_age", "must be >= 0")
	}
	if m.IsNetCDF() {
		if m.NStepsYear < 1 {
			return invalid(key+".n_steps_year", "must be >= 1, got %d", m.NStepsYear)
		}
		if c.Simulation.NStepYear%m.NStepsYear != 0 {
			return invalid(key+".n_steps_year", "must divide simulation.n_step_year (%d)", c.Simulation.NStepYear)
		}
		return nil
	}
	for _, s := range m.Steps {
		if s < 0 || s >= c.Simulation.NStepYear {
			return invalid(key+".steps", "step %d outside [0, %d)", s, c.Simulation.NStepYear)
		}
	}
	for _, y := range m.Years {
		if y < 0 {
			return invalid(key+".years", "year %d must be >= 0", y)
		}
	}
	return nil
}
