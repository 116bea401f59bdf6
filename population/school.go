package population

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/grid"
)

// School is a handle on one school entity. It implements movement.School.
type School struct {
	pop    *Population
	entity ecs.Entity
	id     uint32
	cohort *components.Cohort
	loc    *components.Location
}

// Entity returns the underlying entity.
func (s *School) Entity() ecs.Entity { return s.entity }

// ID returns the school identifier.
func (s *School) ID() uint32 { return s.id }

// Cell returns the occupied cell, or nil when unlocated.
func (s *School) Cell() *grid.Cell {
	if !s.loc.Located() {
		return nil
	}
	return s.pop.grid.CellAt(int(s.loc.Cell))
}

// MoveToCell places the school on c. A school that was out is back in.
func (s *School) MoveToCell(c *grid.Cell) {
	s.loc.Cell = int32(c.Index())
	s.loc.Out = false
}

func (s *School) IsUnlocated() bool { return !s.loc.Located() }

// Out marks the school as out of the domain and unlocates it.
func (s *School) Out() {
	s.loc.Out = true
	s.loc.Unlocate()
}

// IsOut reports whether the school has left the domain.
func (s *School) IsOut() bool { return s.loc.Out }

func (s *School) AgeDt() int { return int(s.cohort.AgeDt) }

// SpeciesIndex returns the species index.
func (s *School) SpeciesIndex() int { return int(s.cohort.Species) }

func (s *School) Species() string { return s.pop.species[s.cohort.Species] }
