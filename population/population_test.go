package population

import (
	"testing"

	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/movement"
)

var _ movement.School = (*School)(nil)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	f := &grid.Fields{
		NX:   3,
		NY:   2,
		Lat:  []float32{0, 0, 0, 1, 1, 1},
		Lon:  []float32{0, 1, 2, 0, 1, 2},
		Land: make([]bool, 6),
	}
	g, err := grid.New(f)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestSpawn(t *testing.T) {
	p := New(testGrid(t), []string{"sardine", "hake"}, []int{3, 5})

	if err := p.Spawn(0, 4, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.Spawn(1, 2, 1); err != nil {
		t.Fatal(err)
	}
	if p.Count(0) != 4 || p.Count(1) != 2 || p.Len() != 6 {
		t.Fatalf("counts = %d, %d, total %d", p.Count(0), p.Count(1), p.Len())
	}

	for _, s := range p.Schools(1) {
		if !s.IsUnlocated() || s.IsOut() {
			t.Errorf("new school %d should be unlocated and in", s.ID())
		}
		if s.AgeDt() != 1 || s.Species() != "hake" || s.SpeciesIndex() != 1 {
			t.Errorf("school %d: age %d species %s", s.ID(), s.AgeDt(), s.Species())
		}
	}
}

func TestSpawnErrors(t *testing.T) {
	p := New(testGrid(t), []string{"sardine"}, []int{3})
	tests := []struct {
		name    string
		sp, age int
	}{
		{"unknown species", 1, 0},
		{"negative species", -1, 0},
		{"age at lifespan", 0, 3},
		{"negative age", 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Spawn(tt.sp, 1, tt.age); err == nil {
				t.Error("expected error")
			}
		})
	}
	if p.Len() != 0 {
		t.Errorf("failed spawns added %d schools", p.Len())
	}
}

func TestSchoolsOrderedByID(t *testing.T) {
	p := New(testGrid(t), []string{"a", "b"}, []int{2, 4})
	for range 3 {
		p.Spawn(0, 2, 0)
		p.Spawn(1, 2, 0)
	}
	// Drop the species a schools so the world reshuffles
	p.Age()
	p.Age()

	got := p.Schools(1)
	if len(got) != 6 {
		t.Fatalf("got %d schools, want 6", len(got))
	}
	for k := 1; k < len(got); k++ {
		if got[k-1].ID() >= got[k].ID() {
			t.Fatalf("schools out of order: %d before %d", got[k-1].ID(), got[k].ID())
		}
	}
	if len(p.Schools(0)) != 0 {
		t.Error("species a should be gone")
	}
}

func TestSchoolMovement(t *testing.T) {
	g := testGrid(t)
	p := New(g, []string{"sardine"}, []int{3})
	p.Spawn(0, 1, 0)
	s := p.Schools(0)[0]

	s.MoveToCell(g.Cell(2, 1))
	if s.IsUnlocated() || s.Cell() != g.Cell(2, 1) {
		t.Fatalf("school at %v, want %v", s.Cell(), g.Cell(2, 1))
	}

	s.Out()
	if !s.IsOut() || !s.IsUnlocated() || s.Cell() != nil {
		t.Fatal("out school should be unlocated")
	}

	s.MoveToCell(g.Cell(0, 0))
	if s.IsOut() {
		t.Error("placed school should be back in")
	}

	// Writes go through to the entity
	again := p.School(s.Entity())
	if again.Cell() != g.Cell(0, 0) {
		t.Errorf("entity cell = %v", again.Cell())
	}
}

func TestAge(t *testing.T) {
	p := New(testGrid(t), []string{"short", "long"}, []int{2, 4})
	p.Spawn(0, 3, 0)
	p.Spawn(1, 2, 2)

	tests := []struct {
		removed     int
		short, long int
	}{
		{0, 3, 2}, // ages 1 and 3
		{5, 0, 0}, // ages 2 and 4
		{0, 0, 0},
	}
	for step, tt := range tests {
		if got := p.Age(); got != tt.removed {
			t.Errorf("step %d: removed %d, want %d", step, got, tt.removed)
		}
		if p.Count(0) != tt.short || p.Count(1) != tt.long {
			t.Errorf("step %d: counts %d, %d, want %d, %d", step, p.Count(0), p.Count(1), tt.short, tt.long)
		}
	}
}

func TestSnapshot(t *testing.T) {
	g := testGrid(t)
	p := New(g, []string{"a", "b"}, []int{5, 5})
	p.Spawn(1, 1, 0)
	p.Spawn(0, 2, 3)

	p.Schools(0)[1].MoveToCell(g.Cell(1, 1))
	p.Schools(1)[0].Out()

	snap := p.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d records", len(snap))
	}
	want := []Record{
		{ID: 1, Species: 0, AgeDt: 3, Cell: -1, I: -1, J: -1},
		{ID: 2, Species: 0, AgeDt: 3, Cell: g.Cell(1, 1).Index(), I: 1, J: 1, Lat: 1, Lon: 1},
		{ID: 0, Species: 1, AgeDt: 0, Cell: -1, I: -1, J: -1, Out: true},
	}
	for k := range want {
		if snap[k] != want[k] {
			t.Errorf("record %d = %+v, want %+v", k, snap[k], want[k])
		}
	}
}
