package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may be overridden from the environment.
// Fields are prefilled from the loaded config so unset variables keep their values.
type envOverrides struct {
	Seed       int64  `env:"SHOAL_SEED"`
	FixedSeed  bool   `env:"SHOAL_FIXED_SEED"`
	Replicates int    `env:"SHOAL_REPLICATES"`
	Workers    int    `env:"SHOAL_WORKERS"`
	OutputDir  string `env:"SHOAL_OUTPUT_DIR"`
	Database   string `env:"SHOAL_DATABASE"`
}

// ApplyEnv overrides config values from SHOAL_* environment variables.
func (c *Config) ApplyEnv() error {
	o := envOverrides{
		Seed:       c.Simulation.Seed,
		FixedSeed:  c.Movement.FixedSeed,
		Replicates: c.Simulation.Replicates,
		Workers:    c.Simulation.Workers,
		OutputDir:  c.Output.Dir,
		Database:   c.Output.Database,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	c.Simulation.Seed = o.Seed
	c.Movement.FixedSeed = o.FixedSeed
	c.Simulation.Replicates = o.Replicates
	c.Simulation.Workers = o.Workers
	c.Output.Dir = o.OutputDir
	c.Output.Database = o.Database
	return nil
}
