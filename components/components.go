// Package components defines ECS components for schools.
package components

// Identity is the stable identifier of a school. IDs are assigned in spawn
// order and never reused within a population.
type Identity struct {
	ID uint32
}

// Cohort holds what a school is: its species index and its age in time steps.
type Cohort struct {
	Species uint16
	AgeDt   int32
}

// NoCell marks a school without a cell.
const NoCell = -1

// Location is where a school is. Cell is a grid cell index or NoCell. Out is
// set when the school has left the simulated domain; an out school is also
// unlocated.
type Location struct {
	Cell int32
	Out  bool
}

// Located reports whether the school occupies a cell.
func (l *Location) Located() bool { return l.Cell != NoCell }

// Unlocate clears the cell without marking the school out.
func (l *Location) Unlocate() {
	l.Cell = NoCell
}
