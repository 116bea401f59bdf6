package maps

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/shoal/grid"
)

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

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func isNaN(v float32) bool { return v != v }

func TestReadCSV(t *testing.T) {
	g := testGrid(t, 3, 2, [2]int{2, 0})
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"semicolon", "0.1;0.2;NA\n0;0.5;0.7\n"},
		{"comma", "0.1,0.2,nan\n0,0.5,0.7\n"},
		{"tab", "0.1\t0.2\tna\n0\t0.5\t0.7\n"},
		{"space", "0.1 0.2 na\n0 0.5 0.7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ReadCSV(g, writeFile(t, dir, tt.name+".csv", tt.body))
			if err != nil {
				t.Fatalf("ReadCSV: %v", err)
			}
			// First row of the file is the northern line j=1.
			if m.At(0, 1) != 0.1 || m.At(1, 1) != 0.2 {
				t.Errorf("north row = %v,%v", m.At(0, 1), m.At(1, 1))
			}
			if !isNaN(m.At(2, 1)) {
				t.Errorf("na should read as NaN, got %v", m.At(2, 1))
			}
			if m.At(1, 0) != 0.5 {
				t.Errorf("south row = %v", m.At(1, 0))
			}
			// Land is NaN whatever the file says.
			if !isNaN(m.At(2, 0)) {
				t.Errorf("land cell = %v, want NaN", m.At(2, 0))
			}
		})
	}
}

func TestReadCSVErrors(t *testing.T) {
	g := testGrid(t, 2, 2)
	dir := t.TempDir()

	tests := []struct {
		name  string
		body  string
		shape bool
	}{
		{"too many rows", "1;1\n1;1\n1;1\n", true},
		{"short row", "1;1\n1\n", true},
		{"bad number", "1;x\n1;1\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(g, writeFile(t, dir, tt.name+".csv", tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.shape != errors.Is(err, ErrMapShape) {
				t.Errorf("error = %v, shape error expected: %v", err, tt.shape)
			}
		})
	}

	if _, err := ReadCSV(g, filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGridMapStats(t *testing.T) {
	g := testGrid(t, 2, 2, [2]int{0, 0})
	m := NewGridMap(g, 0)
	m.Set(1, 0, 0.25)
	m.Set(0, 1, 0.75)

	if got := m.Max(); got != 0.75 {
		t.Errorf("Max = %v, want 0.75", got)
	}
	if got := m.Sum(); got != 1 {
		t.Errorf("Sum = %v, want 1", got)
	}
	if got := m.Positive(); got != 2 {
		t.Errorf("Positive = %d, want 2", got)
	}
	if !isNaN(m.Value(g.Cell(0, 0))) {
		t.Error("land should be NaN")
	}

	empty := NewGridMap(g, 0)
	if empty.Max() != 0 || empty.Sum() != 0 {
		t.Errorf("empty map max/sum = %v/%v", empty.Max(), empty.Sum())
	}
}

func TestGridMapEqual(t *testing.T) {
	g := testGrid(t, 2, 2, [2]int{1, 1})
	a := NewGridMap(g, 0.5)
	b := NewGridMap(g, 0.5)
	if !a.Equal(b) {
		t.Error("maps with NaN on the same land cell should be equal")
	}
	b.Set(0, 0, 0.4)
	if a.Equal(b) {
		t.Error("maps differing on one cell should not be equal")
	}
	other := NewGridMap(testGrid(t, 3, 2), 0.5)
	if a.Equal(other) {
		t.Error("maps of different shape should not be equal")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	g := testGrid(t, 4, 3, [2]int{3, 2})
	m := Synthesize(g, DefaultSynthParams(7))
	path := filepath.Join(t.TempDir(), "map.csv")
	if err := m.WriteCSV(path, ';'); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	back, err := ReadCSV(g, path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !m.Equal(back) {
		t.Error("map changed through CSV round trip")
	}
}

func TestNetCDFRoundTripWithFill(t *testing.T) {
	g := testGrid(t, 3, 2, [2]int{0, 0})
	a := NewGridMap(g, 0)
	a.Set(1, 0, 0.3)
	a.Set(2, 1, -99) // fill value reads back as 0
	b := NewGridMap(g, 0.6)

	path := filepath.Join(t.TempDir(), "maps.nc")
	if err := WriteNetCDF(path, "proba", []*GridMap{a, b}); err != nil {
		t.Fatalf("WriteNetCDF: %v", err)
	}

	got, err := ReadNetCDF(g, path, "proba")
	if err != nil {
		t.Fatalf("ReadNetCDF: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("slices = %d, want 2", len(got))
	}
	if got[0].At(1, 0) != 0.3 {
		t.Errorf("slice 0 (1,0) = %v, want 0.3", got[0].At(1, 0))
	}
	if got[0].At(2, 1) != 0 {
		t.Errorf("fill value = %v, want 0", got[0].At(2, 1))
	}
	if !isNaN(got[1].At(0, 0)) {
		t.Error("land should be NaN")
	}
	if got[1].At(2, 1) != 0.6 {
		t.Errorf("slice 1 (2,1) = %v, want 0.6", got[1].At(2, 1))
	}

	if _, err := ReadNetCDF(testGrid(t, 2, 2), path, "proba"); !errors.Is(err, ErrMapShape) {
		t.Errorf("error = %v, want ErrMapShape for mismatched grid", err)
	}
}

func TestSynthesize(t *testing.T) {
	g := testGrid(t, 20, 15, [2]int{0, 0}, [2]int{5, 5})
	p := DefaultSynthParams(42)
	m := Synthesize(g, p)

	for _, c := range g.Cells() {
		v := m.Value(c)
		if c.IsLand() {
			if !isNaN(v) {
				t.Errorf("land %v = %v, want NaN", c, v)
			}
			continue
		}
		if v < 0 || v >= 1 {
			t.Errorf("%v = %v outside [0,1)", c, v)
		}
		if v > 0 && float64(v) < p.Cutoff {
			t.Errorf("%v = %v below cutoff %v", c, v, p.Cutoff)
		}
	}

	if !m.Equal(Synthesize(g, p)) {
		t.Error("same seed should give the same map")
	}
	if math.IsNaN(float64(m.Max())) {
		t.Error("max should ignore NaN")
	}
}
