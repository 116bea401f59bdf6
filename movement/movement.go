// Package movement decides, every time step, which cell each school occupies.
package movement

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/maps"
)

// MaxSamplingIterations bounds the rejection sampler.
const MaxSamplingIterations = 10000

// ErrSamplingExhausted is matched by every SamplingError.
var ErrSamplingExhausted = errors.New("sampling exhausted")

// SamplingError reports a rejection sampler that hit its iteration cap,
// which means the map is degenerate (all zero, all NaN or all land).
type SamplingError struct {
	Species    string
	AgeYears   float64
	Map        int
	Iterations int
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("species %s age %.2f years: no cell accepted in map %d after %d draws; check the distribution map",
		e.Species, e.AgeYears, e.Map, e.Iterations)
}

func (e *SamplingError) Is(target error) bool {
	return target == ErrSamplingExhausted
}

// School is the view of a school the movement code needs.
type School interface {
	Cell() *grid.Cell
	MoveToCell(c *grid.Cell)
	IsUnlocated() bool
	Out()
	AgeDt() int
	Species() string
}

// Distribution moves the schools of one species. Implementations own their
// random streams and are not safe for concurrent use.
type Distribution interface {
	// Move either places the school on an ocean cell or marks it out.
	Move(s School, step int) error
}

// Recorder receives movement events. Implementations must be cheap; they are
// called once per school per step.
type Recorder interface {
	Resampled(species string)
	Walked(species string)
	Left(species string)
	FellBack(species string)
}

type nopRecorder struct{}

func (nopRecorder) Resampled(string) {}
func (nopRecorder) Walked(string)    {}
func (nopRecorder) Left(string)      {}
func (nopRecorder) FellBack(string)  {}

// Options holds the collaborators shared by every strategy.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

// New builds the distribution configured for species sp. Map-driven species
// need their map set; it is ignored for random species.
func New(cfg *config.Config, sp int, g *grid.Grid, set *maps.Set, opts Options) (Distribution, error) {
	spc := cfg.Species[sp]
	switch spc.Method {
	case config.MethodMaps:
		if set == nil {
			return nil, fmt.Errorf("species %s: method %q needs a map set", spc.Name, spc.Method)
		}
		return NewMapDistribution(g, set, MapParams{
			Species:   sp,
			Range:     spc.Range,
			NStepYear: cfg.Simulation.NStepYear,
			FixedSeed: cfg.Movement.FixedSeed,
		}, opts), nil
	case config.MethodRandom:
		return NewRandomDistribution(g, RandomParams{
			Species:   sp,
			Name:      spc.Name,
			Range:     spc.Range,
			NCell:     spc.NCell,
			FixedSeed: cfg.Movement.FixedSeed,
			Seed:      cfg.Simulation.Seed,
		}, opts)
	default:
		return nil, fmt.Errorf("species %s: unknown distribution method %q", spc.Name, spc.Method)
	}
}
