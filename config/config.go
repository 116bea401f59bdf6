// Package config provides configuration loading and validation for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Grid kinds accepted by grid.kind.
const (
	GridRegular = "regular"
	GridNetCDF  = "netcdf"
	GridStrided = "strided"
)

// Distribution methods accepted by species[].method.
const (
	MethodMaps   = "maps"
	MethodRandom = "random"
)

// NullFile marks a map definition with no map: schools covered by it leave the domain.
const NullFile = "null"

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Grid       GridConfig       `yaml:"grid"`
	Movement   MovementConfig   `yaml:"movement"`
	Species    []SpeciesConfig  `yaml:"species"`
	Output     OutputConfig     `yaml:"output"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds time discretisation and replicate settings.
type SimulationConfig struct {
	NStepYear  int   `yaml:"n_step_year"` // Time steps per simulated year
	NYear      int   `yaml:"n_year"`      // Simulated years
	Replicates int   `yaml:"replicates"`  // Independent replicates to run
	Workers    int   `yaml:"workers"`     // Concurrent replicates per batch (0 = GOMAXPROCS)
	Seed       int64 `yaml:"seed"`        // Base seed for fixed-seed mode and school spawning
}

// GridConfig selects and parameterises the grid loader.
type GridConfig struct {
	Kind    string            `yaml:"kind"`
	Regular RegularGridConfig `yaml:"regular"`
	NetCDF  NetCDFGridConfig  `yaml:"netcdf"`
}

// RegularGridConfig describes a regular lat/lon grid with a CSV land mask.
type RegularGridConfig struct {
	NLine       int     `yaml:"n_line"`
	NColumn     int     `yaml:"n_column"`
	UpLeftLat   float64 `yaml:"upleft_lat"`
	UpLeftLon   float64 `yaml:"upleft_lon"`
	LowRightLat float64 `yaml:"lowright_lat"`
	LowRightLon float64 `yaml:"lowright_lon"`
	MaskFile    string  `yaml:"mask_file"` // Empty = all ocean
}

// NetCDFGridConfig describes a grid read from a netCDF file.
type NetCDFGridConfig struct {
	File    string `yaml:"file"`
	VarLat  string `yaml:"var_lat"`
	VarLon  string `yaml:"var_lon"`
	VarMask string `yaml:"var_mask"`
	VarSurf string `yaml:"var_surf"` // Optional; surfaces are computed when empty
	Stride  int    `yaml:"stride"`   // Aggregation factor for the strided kind
}

// MovementConfig holds settings shared by every distribution strategy.
type MovementConfig struct {
	FixedSeed     bool `yaml:"fixed_seed"`
	ChecksEnabled bool `yaml:"checks_enabled"` // Write movement_checks CSV per map set
}

// SpeciesConfig describes one species and how its schools are distributed.
type SpeciesConfig struct {
	Name     string      `yaml:"name"`
	Lifespan float64     `yaml:"lifespan"` // Years
	Method   string      `yaml:"method"`   // maps | random
	Range    int         `yaml:"range"`    // Movement range in cells
	NCell    int         `yaml:"ncell"`    // Random home-range size (0 = whole ocean)
	Schools  int         `yaml:"schools"`  // Schools spawned per step at age 0
	Maps     []MapConfig `yaml:"maps"`
}

// MapConfig is one map definition of a species map set.
// A CSV definition covers ages x years x steps; a netCDF definition (Variable set)
// covers ages and maps every simulation step to a time slice of the variable.
type MapConfig struct {
	File       string  `yaml:"file"`
	Variable   string  `yaml:"variable"`
	NStepsYear int     `yaml:"n_steps_year"` // netCDF slices per year
	InitialAge float64 `yaml:"initial_age"`  // Years
	LastAge    float64 `yaml:"last_age"`     // Years
	Steps      []int   `yaml:"steps"`        // Steps within the year (empty = all)
	Years      []int   `yaml:"years"`        // Simulated years (empty = all)
}

// IsNetCDF reports whether the definition reads a netCDF variable.
func (m MapConfig) IsNetCDF() bool {
	return m.Variable != ""
}

// IsNull reports whether the definition explicitly has no map.
func (m MapConfig) IsNull() bool {
	return m.File == NullFile
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Dir       string `yaml:"dir"`       // Empty disables file output
	Prefix    string `yaml:"prefix"`    // File name prefix
	Separator string `yaml:"separator"` // CSV separator of every output file
	Database  string `yaml:"database"`  // SQLite trajectory store (empty = disabled)
}

// Comma returns the CSV separator as a rune. "\t" and "tab" mean a tab;
// an empty separator means a comma.
func (o OutputConfig) Comma() rune {
	switch o.Separator {
	case "":
		return ','
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(o.Separator)
	return r
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsInterval int `yaml:"stats_interval"` // Steps between distribution stats records
	PerfWindow    int `yaml:"perf_window"`    // Steps averaged by the perf collector
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NStep        int            // NStepYear * NYear
	LifespanDt   []int          // Per species lifespan in steps
	SpeciesIndex map[string]int // name -> index
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. Environment overrides are
// applied last.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load: %v", err))
	}
	return cfg
}

// Refresh recomputes derived values after the caller mutated the config.
func (c *Config) Refresh() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NStep = c.Simulation.NStepYear * c.Simulation.NYear

	c.Derived.LifespanDt = make([]int, len(c.Species))
	c.Derived.SpeciesIndex = make(map[string]int, len(c.Species))
	for i, sp := range c.Species {
		c.Derived.LifespanDt[i] = int(math.Round(sp.Lifespan * float64(c.Simulation.NStepYear)))
		c.Derived.SpeciesIndex[sp.Name] = i

		if sp.Method == "" {
			c.Species[i].Method = MethodMaps
		}
		if sp.Range == 0 {
			c.Species[i].Range = 1
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
