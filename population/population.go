// Package population keeps the schools of every species in an ECS world.
package population

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/grid"
)

// Population owns the schools of one replicate. It is not safe for
// concurrent use; each replicate has its own.
type Population struct {
	world    *ecs.World
	grid     *grid.Grid
	species  []string
	lifespan []int

	mapper *ecs.Map3[components.Identity, components.Cohort, components.Location]
	filter *ecs.Filter3[components.Identity, components.Cohort, components.Location]

	nextID uint32
	counts []int
}

// New returns an empty population. species and lifespanDt are indexed by
// species and must have the same length.
func New(g *grid.Grid, species []string, lifespanDt []int) *Population {
	world := ecs.NewWorld()
	return &Population{
		world:    world,
		grid:     g,
		species:  species,
		lifespan: lifespanDt,
		mapper:   ecs.NewMap3[components.Identity, components.Cohort, components.Location](world),
		filter:   ecs.NewFilter3[components.Identity, components.Cohort, components.Location](world),
		counts:   make([]int, len(species)),
	}
}

// Spawn adds n unlocated schools of species sp aged ageDt steps.
func (p *Population) Spawn(sp, n, ageDt int) error {
	if sp < 0 || sp >= len(p.species) {
		return fmt.Errorf("spawn: species index %d out of range", sp)
	}
	if ageDt < 0 || ageDt >= p.lifespan[sp] {
		return fmt.Errorf("spawn %s: age %d outside lifespan of %d steps", p.species[sp], ageDt, p.lifespan[sp])
	}
	for range n {
		id := components.Identity{ID: p.nextID}
		p.nextID++
		cohort := components.Cohort{Species: uint16(sp), AgeDt: int32(ageDt)}
		loc := components.Location{Cell: components.NoCell}
		p.mapper.NewEntity(&id, &cohort, &loc)
	}
	p.counts[sp] += n
	return nil
}

// School returns a handle on entity e.
func (p *Population) School(e ecs.Entity) *School {
	id, cohort, loc := p.mapper.Get(e)
	return &School{pop: p, entity: e, id: id.ID, cohort: cohort, loc: loc}
}

// Schools returns handles on the schools of species sp, ordered by ID.
// Handles stay valid until the next Spawn or Age.
func (p *Population) Schools(sp int) []*School {
	out := make([]*School, 0, p.Count(sp))
	query := p.filter.Query()
	for query.Next() {
		id, cohort, loc := query.Get()
		if int(cohort.Species) != sp {
			continue
		}
		out = append(out, &School{pop: p, entity: query.Entity(), id: id.ID, cohort: cohort, loc: loc})
	}
	slices.SortFunc(out, func(a, b *School) int {
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// Age advances every school by one time step and removes those that reach
// their species lifespan. It returns the number of removed schools.
func (p *Population) Age() int {
	// Collect first; the world is locked while the query runs
	var expired []ecs.Entity
	query := p.filter.Query()
	for query.Next() {
		_, cohort, _ := query.Get()
		cohort.AgeDt++
		if int(cohort.AgeDt) >= p.lifespan[cohort.Species] {
			expired = append(expired, query.Entity())
		}
	}

	for _, e := range expired {
		_, cohort, _ := p.mapper.Get(e)
		p.counts[cohort.Species]--
		p.world.RemoveEntity(e)
	}
	return len(expired)
}

// Count returns the number of schools of species sp.
func (p *Population) Count(sp int) int {
	if sp < 0 || sp >= len(p.counts) {
		return 0
	}
	return p.counts[sp]
}

// Len returns the number of schools of every species.
func (p *Population) Len() int {
	n := 0
	for _, c := range p.counts {
		n += c
	}
	return n
}

// NSpecies returns the number of species.
func (p *Population) NSpecies() int { return len(p.species) }

// SpeciesName returns the name of species sp.
func (p *Population) SpeciesName(sp int) string { return p.species[sp] }

// Record is a flat copy of one school's state.
type Record struct {
	ID      uint32
	Species int
	AgeDt   int
	Cell    int // grid index or -1
	I, J    int
	Lat     float32
	Lon     float32
	Out     bool
}

// Snapshot copies the state of every school, ordered by species then ID.
func (p *Population) Snapshot() []Record {
	out := make([]Record, 0, p.Len())
	query := p.filter.Query()
	for query.Next() {
		id, cohort, loc := query.Get()
		r := Record{
			ID:      id.ID,
			Species: int(cohort.Species),
			AgeDt:   int(cohort.AgeDt),
			Cell:    int(loc.Cell),
			I:       -1,
			J:       -1,
			Out:     loc.Out,
		}
		if loc.Located() {
			c := p.grid.CellAt(r.Cell)
			r.I, r.J = c.I(), c.J()
			r.Lat, r.Lon = c.Lat(), c.Lon()
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Record) int {
		if a.Species != b.Species {
			return cmp.Compare(a.Species, b.Species)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
