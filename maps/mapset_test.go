package maps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/shoal/config"
	"github.com/pthm-cable/shoal/grid"
)

// testConfig returns a valid config with one map-driven species of lifespan
// 1 year, 4 steps per year and 2 years.
func testConfig(t *testing.T, defs ...config.MapConfig) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Simulation: config.SimulationConfig{NStepYear: 4, NYear: 2, Replicates: 1},
		Grid: config.GridConfig{
			Kind:    config.GridRegular,
			Regular: config.RegularGridConfig{NLine: 2, NColumn: 3, UpLeftLat: 1, LowRightLon: 1},
		},
		Species: []config.SpeciesConfig{
			{Name: "anchovy", Lifespan: 1, Method: config.MethodMaps, Maps: defs},
		},
	}
	if err := cfg.Refresh(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func writeMap(t *testing.T, g *grid.Grid, dir, name string, v float32) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := NewGridMap(g, v).WriteCSV(path, ';'); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSVIndexation(t *testing.T) {
	g := testGrid(t, 3, 2)
	dir := t.TempDir()
	juvenile := writeMap(t, g, dir, "juv.csv", 0.2)
	summer := writeMap(t, g, dir, "summer.csv", 0.4)
	winter := writeMap(t, g, dir, "winter.csv", 0.6)

	cfg := testConfig(t,
		// Ages 0..1 (dt), all steps.
		config.MapConfig{File: juvenile, InitialAge: 0, LastAge: 0.25},
		// Ages 2..3, steps 0-1 of every year.
		config.MapConfig{File: summer, InitialAge: 0.5, LastAge: 1, Steps: []int{0, 1}},
		// Ages 2..3, steps 2-3; last age beyond lifespan is clamped.
		config.MapConfig{File: winter, InitialAge: 0.5, LastAge: 5, Steps: []int{2, 3}},
	)

	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.NMap() != 3 {
		t.Errorf("NMap = %d, want 3", s.NMap())
	}
	tests := []struct {
		age, step int
		want      int
	}{
		{0, 0, 0},
		{1, 7, 0},
		{2, 0, 1},
		{3, 5, 1},
		{2, 2, 2},
		{3, 7, 2},
	}
	for _, tt := range tests {
		if got := s.IndexMap(tt.age, tt.step); got != tt.want {
			t.Errorf("IndexMap(%d,%d) = %d, want %d", tt.age, tt.step, got, tt.want)
		}
	}
	if got := s.Get(3, 6).At(0, 0); got != 0.6 {
		t.Errorf("winter map value = %v, want 0.6", got)
	}
}

func TestLoadOutOfRange(t *testing.T) {
	g := testGrid(t, 3, 2)
	cfg := testConfig(t, config.MapConfig{File: writeMap(t, g, t.TempDir(), "a.csv", 1), LastAge: 1})
	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, at := range [][2]int{{-1, 0}, {4, 0}, {0, 8}, {0, -1}} {
		if got := s.IndexMap(at[0], at[1]); got != NoMap {
			t.Errorf("IndexMap(%d,%d) = %d, want NoMap", at[0], at[1], got)
		}
		if s.Get(at[0], at[1]) != nil {
			t.Errorf("Get(%d,%d) should be nil", at[0], at[1])
		}
	}
}

func TestLoadNullMap(t *testing.T) {
	g := testGrid(t, 3, 2)
	path := writeMap(t, g, t.TempDir(), "a.csv", 0.5)
	cfg := testConfig(t,
		config.MapConfig{File: path, LastAge: 1, Years: []int{0}},
		config.MapConfig{File: config.NullFile, LastAge: 1, Years: []int{1}},
	)
	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Get(2, 1) == nil {
		t.Error("year 0 should have a map")
	}
	if s.Get(2, 5) != nil {
		t.Error("year 1 should have no map")
	}
	if s.IndexMap(2, 5) != 1 {
		t.Errorf("null map index = %d, want 1", s.IndexMap(2, 5))
	}
}

func TestLoadMissingIndexation(t *testing.T) {
	g := testGrid(t, 3, 2)
	path := writeMap(t, g, t.TempDir(), "a.csv", 0.5)
	cfg := testConfig(t, config.MapConfig{File: path, LastAge: 1, Steps: []int{0, 1, 2}})

	_, err := Load(g, cfg, 0, nil)
	if !errors.Is(err, ErrMissingIndexation) {
		t.Fatalf("error = %v, want ErrMissingIndexation", err)
	}
}

func TestEliminateTwinsByFile(t *testing.T) {
	g := testGrid(t, 3, 2)
	dir := t.TempDir()
	a := writeMap(t, g, dir, "a.csv", 0.5)
	b := writeMap(t, g, dir, "b.csv", 0.5)
	cfg := testConfig(t,
		config.MapConfig{File: a, LastAge: 1, Steps: []int{0}},
		config.MapConfig{File: b, LastAge: 1, Steps: []int{1}},
		config.MapConfig{File: a, LastAge: 1, Steps: []int{2, 3}},
	)

	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.IndexMap(0, 2) != 0 {
		t.Errorf("twin index = %d, want 0", s.IndexMap(0, 2))
	}
	if s.Map(2) != nil {
		t.Error("duplicate slot should be cleared")
	}
	// Same values but a different file: not a twin for CSV maps.
	if s.IndexMap(0, 1) != 1 || s.Map(1) == nil {
		t.Errorf("b should keep its own slot, got index %d", s.IndexMap(0, 1))
	}
}

func TestLoadNetCDFSeries(t *testing.T) {
	g := testGrid(t, 3, 2)
	dir := t.TempDir()

	s0 := NewGridMap(g, 0.1)
	s1 := NewGridMap(g, 0) // empty slice: no map
	s2 := NewGridMap(g, 0.1)
	path := filepath.Join(dir, "series.nc")
	if err := WriteNetCDF(path, "proba", []*GridMap{s0, s1, s2}); err != nil {
		t.Fatal(err)
	}

	// 4 steps per year, 2 slices per year: each slice lasts 2 steps and the
	// 3 slices cycle over the 8 steps.
	cfg := testConfig(t, config.MapConfig{File: path, Variable: "proba", NStepsYear: 2, LastAge: 1})
	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.NMap() != 3 {
		t.Fatalf("NMap = %d, want 3", s.NMap())
	}
	wantSlice := []int{0, 0, 1, 1, 2, 2, 0, 0}
	for step, slice := range wantSlice {
		got := s.IndexMap(1, step)
		want := slice
		// Slice 2 equals slice 0 and is folded onto it.
		if slice == 2 {
			want = 0
		}
		if got != want {
			t.Errorf("step %d index = %d, want %d", step, got, want)
		}
	}
	if s.Get(0, 2) != nil {
		t.Error("all-zero slice should give no map")
	}
	if s.Map(2) != nil {
		t.Error("twin slice should be cleared")
	}

	checks := s.Checks()
	if len(checks) != 4*8 {
		t.Fatalf("checks = %d rows, want 32", len(checks))
	}
	if checks[4].NcIndex != "2" || checks[4].File != path {
		t.Errorf("check row 4 = %+v, want slice 2 of %s", checks[4], path)
	}
	if checks[2].File != config.NullFile || checks[2].NcIndex != "null" {
		t.Errorf("check row 2 = %+v, want null", checks[2])
	}
}

func TestWriteChecks(t *testing.T) {
	g := testGrid(t, 3, 2)
	dir := t.TempDir()
	a := writeMap(t, g, dir, "a.csv", 0.5)
	cfg := testConfig(t,
		config.MapConfig{File: a, LastAge: 1, Years: []int{0}},
		config.MapConfig{File: config.NullFile, LastAge: 1, Years: []int{1}},
	)
	s, err := Load(g, cfg, 0, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	path, err := s.WriteChecks(dir, "run", ',')
	if err != nil {
		t.Fatalf("WriteChecks: %v", err)
	}
	if path != filepath.Join(dir, "movement_checks", "run_movement_checks_anchovy.csv") {
		t.Errorf("path = %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var rows []CheckRecord
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("reading checks: %v", err)
	}
	if len(rows) != 32 {
		t.Fatalf("rows = %d, want 32", len(rows))
	}
	last := rows[len(rows)-1]
	if last.AgeDt != 3 || last.Step != 7 || last.File != config.NullFile {
		t.Errorf("last row = %+v", last)
	}
	if rows[0].File != a || rows[0].NcIndex != "null" {
		t.Errorf("first row = %+v", rows[0])
	}
}
