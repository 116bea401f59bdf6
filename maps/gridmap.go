// Package maps holds per-cell probability fields and the per-species sets
// that index them by age and time step.
package maps

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/ncvar"
)

// ErrMapShape is returned when a map file does not match the grid.
var ErrMapShape = errors.New("map does not match grid")

// defaultFillValue replaces a missing _FillValue attribute.
const defaultFillValue = -99

// GridMap is a dense ny x nx scalar field over a grid. Values > 0 mark cells
// where a school may be; values <= 0 or NaN exclude the cell. Land is NaN.
type GridMap struct {
	nx, ny int
	values []float32 // row-major, index j*nx+i
}

// NewGridMap returns a map with value v on ocean cells and NaN on land.
func NewGridMap(g *grid.Grid, v float32) *GridMap {
	m := &GridMap{nx: g.NX(), ny: g.NY(), values: make([]float32, g.NCell())}
	for _, c := range g.Cells() {
		if c.IsLand() {
			m.values[c.Index()] = float32(math.NaN())
		} else {
			m.values[c.Index()] = v
		}
	}
	return m
}

// Value returns the map value at a cell.
func (m *GridMap) Value(c *grid.Cell) float32 {
	return m.values[c.Index()]
}

// At returns the value at column i, row j.
func (m *GridMap) At(i, j int) float32 {
	return m.values[j*m.nx+i]
}

// Set assigns the value at column i, row j.
func (m *GridMap) Set(i, j int, v float32) {
	m.values[j*m.nx+i] = v
}

// Max returns the largest non-NaN value, or 0 when every value is NaN or
// non-positive.
func (m *GridMap) Max() float32 {
	var out float32
	for _, v := range m.values {
		if v > out {
			out = v
		}
	}
	return out
}

// Sum adds up the non-NaN values.
func (m *GridMap) Sum() float64 {
	vals := make([]float64, 0, len(m.values))
	for _, v := range m.values {
		if !math.IsNaN(float64(v)) {
			vals = append(vals, float64(v))
		}
	}
	return floats.Sum(vals)
}

// Positive counts the cells with a value > 0.
func (m *GridMap) Positive() int {
	n := 0
	for _, v := range m.values {
		if v > 0 {
			n++
		}
	}
	return n
}

// Equal reports whether two maps hold the same values, NaN matching NaN.
func (m *GridMap) Equal(o *GridMap) bool {
	if m.nx != o.nx || m.ny != o.ny {
		return false
	}
	for idx, v := range m.values {
		w := o.values[idx]
		if v != v && w != w {
			continue
		}
		if v != w {
			return false
		}
	}
	return true
}

// maskLand forces land cells to NaN so no school can be placed on land.
func (m *GridMap) maskLand(g *grid.Grid) {
	for _, c := range g.Cells() {
		if c.IsLand() {
			m.values[c.Index()] = float32(math.NaN())
		}
	}
}

// ReadCSV reads a map laid out like the grid: the first row is the northern
// line. "na" and "nan" are NaN. The separator is guessed from the first line.
func ReadCSV(g *grid.Grid, path string) (*GridMap, error) {
	sep, err := guessSeparator(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading CSV map: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = sep != ' '
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV map %s: %w", path, err)
	}

	nx, ny := g.NX(), g.NY()
	if len(rows) != ny {
		return nil, fmt.Errorf("%w: %s has %d rows, grid has %d", ErrMapShape, path, len(rows), ny)
	}

	m := NewGridMap(g, 0)
	for l, row := range rows {
		if len(row) != nx {
			return nil, fmt.Errorf("%w: %s row %d has %d columns, grid has %d", ErrMapShape, path, l+1, len(row), nx)
		}
		j := ny - l - 1
		for i, field := range row {
			field = strings.TrimSpace(field)
			switch strings.ToLower(field) {
			case "na", "nan":
				m.Set(i, j, float32(math.NaN()))
				continue
			}
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, fmt.Errorf("parsing CSV map %s row %d column %d: %w", path, l+1, i+1, err)
			}
			m.Set(i, j, float32(v))
		}
	}
	m.maskLand(g)
	return m, nil
}

// guessSeparator picks the first of ';', ',' and tab found on the first
// non-empty line, falling back to a space.
func guessSeparator(path string) (rune, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading CSV map: %w", err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, sep := range []rune{';', ',', '\t'} {
			if strings.ContainsRune(line, sep) {
				return sep, nil
			}
		}
		return ' ', nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading CSV map %s: %w", path, err)
	}
	return ';', nil
}

// WriteCSV writes the map with the northern line first. NaN is written as "na".
func (m *GridMap) WriteCSV(path string, sep rune) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV map: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = sep
	row := make([]string, m.nx)
	for j := m.ny - 1; j >= 0; j-- {
		for i := 0; i < m.nx; i++ {
			v := m.At(i, j)
			if math.IsNaN(float64(v)) {
				row[i] = "na"
			} else {
				row[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing CSV map %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing CSV map %s: %w", path, err)
	}
	return file.Close()
}

// ReadNetCDF reads every time slice of a (time, y, x) variable. Values equal
// to the variable's _FillValue (default -99) become 0.
func ReadNetCDF(g *grid.Grid, path, variable string) ([]*GridMap, error) {
	nc, err := ncvar.Open(path)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	v, err := nc.Read(variable)
	if err != nil {
		return nil, err
	}
	if v.Rank() != 3 {
		return nil, fmt.Errorf("%w: %s %q must have 3 dimensions (time, lat, lon), got %d", ErrMapShape, path, variable, v.Rank())
	}
	if v.Dims[1] != g.NY() || v.Dims[2] != g.NX() {
		return nil, fmt.Errorf("%w: %s %q is %dx%d, grid is %dx%d", ErrMapShape, path, variable, v.Dims[2], v.Dims[1], g.NX(), g.NY())
	}

	fill, ok := nc.FillValue(variable)
	if !ok {
		fill = defaultFillValue
	}

	n := g.NCell()
	out := make([]*GridMap, v.Dims[0])
	for t := range out {
		m := &GridMap{nx: g.NX(), ny: g.NY(), values: make([]float32, n)}
		for idx, x := range v.Data[t*n : (t+1)*n] {
			if x == fill {
				continue
			}
			m.values[idx] = float32(x)
		}
		m.maskLand(g)
		out[t] = m
	}
	return out, nil
}

// WriteNetCDF writes maps as consecutive time slices of one variable.
func WriteNetCDF(path, variable string, ms []*GridMap) error {
	if len(ms) == 0 {
		return fmt.Errorf("writing %s: no maps", path)
	}
	nx, ny := ms[0].nx, ms[0].ny
	data := make([]float32, 0, len(ms)*nx*ny)
	for _, m := range ms {
		data = append(data, m.values...)
	}
	fill := float32(defaultFillValue)
	return ncvar.Create(path, []string{"time", "y", "x"}, []int{len(ms), ny, nx}, []ncvar.Spec{
		{Name: variable, Dims: []string{"time", "y", "x"}, Data: data, FillValue: &fill},
	})
}
