package movement

import (
	"path/filepath"
	"testing"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/maps"
)

// fakeSchool is a minimal School. A school marked out loses its cell.
type fakeSchool struct {
	cell    *grid.Cell
	out     bool
	age     int
	species string
	moves   int
}

func (f *fakeSchool) Cell() *grid.Cell { return f.cell }
func (f *fakeSchool) MoveToCell(c *grid.Cell) {
	f.cell = c
	f.out = false
	f.moves++
}
func (f *fakeSchool) IsUnlocated() bool { return f.cell == nil }
func (f *fakeSchool) Out() {
	f.out = true
	f.cell = nil
}
func (f *fakeSchool) AgeDt() int      { return f.age }
func (f *fakeSchool) Species() string { return f.species }

type countingRecorder struct {
	resampled, walked, left, fellBack int
}

func (r *countingRecorder) Resampled(string) { r.resampled++ }
func (r *countingRecorder) Walked(string)    { r.walked++ }
func (r *countingRecorder) Left(string)      { r.left++ }
func (r *countingRecorder) FellBack(string)  { r.fellBack++ }

// testGrid builds an nx x ny grid with the given land cells.
func testGrid(t *testing.T, nx, ny int, land ...[2]int) *grid.Grid {
	t.Helper()
	f := &grid.Fields{
		NX:   nx,
		NY:   ny,
		Lat:  make([]float32, nx*ny),
		Lon:  make([]float32, nx*ny),
		Land: make([]bool, nx*ny),
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			f.Lat[j*nx+i] = float32(j)
			f.Lon[j*nx+i] = float32(i)
		}
	}
	for _, ij := range land {
		f.Land[ij[1]*nx+ij[0]] = true
	}
	g, err := grid.New(f)
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

// mapFile writes a CSV map holding values at the given cells, 0 elsewhere.
func mapFile(t *testing.T, g *grid.Grid, name string, values map[[2]int]float32) string {
	t.Helper()
	m := maps.NewGridMap(g, 0)
	for ij, v := range values {
		m.Set(ij[0], ij[1], v)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := m.WriteCSV(path, ';'); err != nil {
		t.Fatal(err)
	}
	return path
}

// mapConfig returns a config for one map-driven species with 4 steps per
// year, 2 years and a 1 year lifespan (ages 0..3 in steps).
func mapConfig(t *testing.T, fixed bool, defs ...config.MapConfig) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Simulation: config.SimulationConfig{NStepYear: 4, NYear: 2, Replicates: 1, Seed: 7},
		Grid: config.GridConfig{
			Kind:    config.GridRegular,
			Regular: config.RegularGridConfig{NLine: 1, NColumn: 1, UpLeftLat: 1, LowRightLon: 1},
		},
		Movement: config.MovementConfig{FixedSeed: fixed},
		Species: []config.SpeciesConfig{
			{Name: "hake", Lifespan: 1, Method: config.MethodMaps, Range: 1, Maps: defs},
		},
	}
	if err := cfg.Refresh(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func mapDistribution(t *testing.T, g *grid.Grid, cfg *config.Config, rec Recorder) *MapDistribution {
	t.Helper()
	set, err := maps.Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("maps.Load: %v", err)
	}
	d, err := New(cfg, 0, g, set, Options{Recorder: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d.(*MapDistribution)
}

func TestNewRejectsUnknownMethod(t *testing.T) {
	g := testGrid(t, 2, 2)
	cfg := mapConfig(t, true, config.MapConfig{File: "x.csv", LastAge: 1})
	cfg.Species[0].Method = "teleport"
	if _, err := New(cfg, 0, g, nil, Options{}); err == nil {
		t.Fatal("expected error")
	}
	cfg.Species[0].Method = config.MethodMaps
	if _, err := New(cfg, 0, g, nil, Options{}); err == nil {
		t.Fatal("expected error for missing map set")
	}
}
