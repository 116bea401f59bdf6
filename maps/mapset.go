package maps

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
)

// ErrMissingIndexation is returned when some (age, step) pair has no map definition.
var ErrMissingIndexation = errors.New("missing map indexation")

// NoMap is the index returned for (age, step) pairs outside the table.
const NoMap = -1

// Set indexes the maps of one species by age (in time steps) and simulation
// step. Several indices may share a map after twin elimination; a nil map
// means schools covered by it are outside the domain.
type Set struct {
	species string
	index   [][]int // [ageDt][step]
	maps    []*GridMap
	sources []source
	checks  []CheckRecord
}

// source records where a map came from, for twin elimination and checks.
type source struct {
	file    string
	ncIndex int // -1 for CSV maps
}

func (s source) isNetCDF() bool { return s.ncIndex >= 0 }

// Load builds the map set of species sp from its map definitions.
func Load(g *grid.Grid, cfg *config.Config, sp int, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	spc := cfg.Species[sp]
	lifespan := cfg.Derived.LifespanDt[sp]
	nStepYear := cfg.Simulation.NStepYear
	nStep := max(cfg.Derived.NStep, nStepYear)

	s := &Set{species: spc.Name, index: make([][]int, lifespan)}
	for a := range s.index {
		s.index[a] = make([]int, nStep)
		for t := range s.index[a] {
			s.index[a][t] = NoMap
		}
	}

	for k, def := range spc.Maps {
		ageMin := int(math.Round(def.InitialAge * float64(nStepYear)))
		ageMax := min(int(math.Round(def.LastAge*float64(nStepYear))), lifespan-1)

		if def.IsNetCDF() && !def.IsNull() {
			if err := s.addNetCDF(g, def, ageMin, ageMax, nStepYear); err != nil {
				return nil, fmt.Errorf("species %s map %d: %w", spc.Name, k, err)
			}
			continue
		}

		n := len(s.maps)
		if def.IsNull() {
			s.maps = append(s.maps, nil)
			s.sources = append(s.sources, source{file: config.NullFile, ncIndex: -1})
		} else {
			m, err := ReadCSV(g, def.File)
			if err != nil {
				return nil, fmt.Errorf("species %s map %d: %w", spc.Name, k, err)
			}
			s.maps = append(s.maps, m)
			s.sources = append(s.sources, source{file: def.File, ncIndex: -1})
		}

		years := def.Years
		if len(years) == 0 {
			years = seq(cfg.Simulation.NYear)
		}
		steps := def.Steps
		if len(steps) == 0 {
			steps = seq(nStepYear)
		}
		for a := ageMin; a <= ageMax; a++ {
			for _, y := range years {
				for _, st := range steps {
					t := y*nStepYear + st
					if t >= nStep {
						break
					}
					s.index[a][t] = n
				}
			}
		}
	}

	if err := s.checkIndexation(cfg.Derived.NStep, nStepYear, logger); err != nil {
		return nil, err
	}

	s.checks = s.checkRecords(cfg.Derived.NStep)
	s.eliminateTwins()
	return s, nil
}

// addNetCDF appends one map per time slice. Simulation step t uses slice
// (t / (nStepYear / ncPerYear)) % nTime.
func (s *Set) addNetCDF(g *grid.Grid, def config.MapConfig, ageMin, ageMax, nStepYear int) error {
	slices, err := ReadNetCDF(g, def.File, def.Variable)
	if err != nil {
		return err
	}
	nTime := len(slices)
	if nTime == 0 {
		return fmt.Errorf("%w: %s %q has no time slice", ErrMapShape, def.File, def.Variable)
	}
	stepsPerSlice := nStepYear / def.NStepsYear

	first := len(s.maps)
	for i, m := range slices {
		if m.Sum() == 0 {
			s.maps = append(s.maps, nil)
			s.sources = append(s.sources, source{file: config.NullFile, ncIndex: -1})
			continue
		}
		s.maps = append(s.maps, m)
		s.sources = append(s.sources, source{file: def.File, ncIndex: i})
	}

	for a := ageMin; a <= ageMax; a++ {
		for t := range s.index[a] {
			s.index[a][t] = first + (t/stepsPerSlice)%nTime
		}
	}
	return nil
}

func (s *Set) checkIndexation(nStep, nStepYear int, logger *slog.Logger) error {
	var missing []string
	for a := range s.index {
		for t := 0; t < nStep; t++ {
			if s.index[a][t] < 0 {
				missing = append(missing, fmt.Sprintf("age %d year %d step %d", a, t/nStepYear, t%nStepYear))
				logger.Warn("no map assigned",
					"species", s.species,
					"age_dt", a,
					"year", t/nStepYear,
					"step", t%nStepYear,
				)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	shown := missing
	if len(shown) > 5 {
		shown = append(shown[:5:5], fmt.Sprintf("and %d more", len(missing)-5))
	}
	return fmt.Errorf("%w for species %s: %s", ErrMissingIndexation, s.species, strings.Join(shown, ", "))
}

// eliminateTwins makes duplicate maps share the index of their first
// occurrence and drops the duplicates. CSV maps are twins when they come from
// the same file, netCDF maps when their values are equal.
func (s *Set) eliminateTwins() {
	noTwin := make([]int, len(s.maps))
	for k := range s.maps {
		noTwin[k] = k
		if s.maps[k] == nil {
			continue
		}
		for l := k - 1; l >= 0; l-- {
			if s.maps[l] == nil {
				continue
			}
			if s.isTwin(k, l) {
				noTwin[k] = noTwin[l]
				s.maps[k] = nil
				break
			}
		}
	}

	for a := range s.index {
		for t, idx := range s.index[a] {
			if idx >= 0 {
				s.index[a][t] = noTwin[idx]
			}
		}
	}
}

func (s *Set) isTwin(k, l int) bool {
	sk, sl := s.sources[k], s.sources[l]
	if sk.isNetCDF() != sl.isNetCDF() {
		return false
	}
	if sk.isNetCDF() {
		return s.maps[k].Equal(s.maps[l])
	}
	return sk.file == sl.file
}

// Species returns the species name.
func (s *Set) Species() string { return s.species }

// NMap returns the number of map slots, including empty ones.
func (s *Set) NMap() int { return len(s.maps) }

// Map returns map i, or nil when the slot is empty.
func (s *Set) Map(i int) *GridMap {
	if i < 0 || i >= len(s.maps) {
		return nil
	}
	return s.maps[i]
}

// IndexMap returns the map index for a school of age ageDt at step, or NoMap
// when the pair is outside the table.
func (s *Set) IndexMap(ageDt, step int) int {
	if ageDt < 0 || ageDt >= len(s.index) {
		return NoMap
	}
	row := s.index[ageDt]
	if step < 0 || step >= len(row) {
		return NoMap
	}
	return row[step]
}

// Get returns the map applicable at (ageDt, step), or nil when there is none.
func (s *Set) Get(ageDt, step int) *GridMap {
	return s.Map(s.IndexMap(ageDt, step))
}

// LifespanDt returns the number of age rows in the index table.
func (s *Set) LifespanDt() int { return len(s.index) }

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
