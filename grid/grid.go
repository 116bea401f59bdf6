// Package grid turns per-cell coordinates and a land mask into an indexed,
// queryable set of ocean and land cells.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in metres used for cell surfaces.
const EarthRadius = 6371 * 1e3

// ErrShape is returned when the loader arrays disagree with the grid dimensions.
var ErrShape = errors.New("inconsistent grid shape")

// Fields is the raw loader output: row-major arrays of length NX*NY where
// element j*NX+i describes cell (i, j).
type Fields struct {
	NX, NY  int
	Lat     []float32
	Lon     []float32
	Land    []bool
	Surface []float32 // Optional; computed from Lat/Lon when nil
}

func (f *Fields) check() error {
	if f.NX < 1 || f.NY < 1 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrShape, f.NX, f.NY)
	}
	n := f.NX * f.NY
	if len(f.Lat) != n {
		return fmt.Errorf("%w: lat has %d values, want %d", ErrShape, len(f.Lat), n)
	}
	if len(f.Lon) != n {
		return fmt.Errorf("%w: lon has %d values, want %d", ErrShape, len(f.Lon), n)
	}
	if len(f.Land) != n {
		return fmt.Errorf("%w: mask has %d values, want %d", ErrShape, len(f.Land), n)
	}
	if f.Surface != nil && len(f.Surface) != n {
		return fmt.Errorf("%w: surface has %d values, want %d", ErrShape, len(f.Surface), n)
	}
	return nil
}

// Grid owns the ny x nx matrix of cells. It is read-only once built and may be
// shared between goroutines.
type Grid struct {
	nx, ny     int
	matrix     []Cell // row-major, index j*nx+i
	cells      []*Cell
	oceanCells []*Cell

	latMin, latMax float32
	lonMin, lonMax float32
	dLat, dLong    float32
}

// New builds a grid from loader output.
func New(f *Fields) (*Grid, error) {
	if err := f.check(); err != nil {
		return nil, err
	}

	g := &Grid{
		nx:     f.NX,
		ny:     f.NY,
		matrix: make([]Cell, f.NX*f.NY),
	}

	nOcean := 0
	for j := 0; j < g.ny; j++ {
		for i := 0; i < g.nx; i++ {
			idx := j*g.nx + i
			g.matrix[idx] = Cell{
				index: idx,
				i:     i,
				j:     j,
				lat:   f.Lat[idx],
				lon:   f.Lon[idx],
				land:  f.Land[idx],
			}
			if !f.Land[idx] {
				nOcean++
			}
		}
	}

	// Cells are listed from the last row and column backwards.
	g.cells = make([]*Cell, 0, len(g.matrix))
	g.oceanCells = make([]*Cell, 0, nOcean)
	for j := g.ny - 1; j >= 0; j-- {
		for i := g.nx - 1; i >= 0; i-- {
			c := &g.matrix[j*g.nx+i]
			g.cells = append(g.cells, c)
			if !c.land {
				g.oceanCells = append(g.oceanCells, c)
			}
		}
	}

	g.computeExtent()

	if f.Surface != nil {
		for idx := range g.matrix {
			g.matrix[idx].surface = f.Surface[idx]
		}
	} else {
		for idx := range g.matrix {
			c := &g.matrix[idx]
			c.surface = float32(g.ComputeSurface(float64(c.lat), float64(c.lon)))
		}
	}

	return g, nil
}

// computeExtent scans cell centres for the bounding box and average cell size.
func (g *Grid) computeExtent() {
	g.lonMin = math.MaxFloat32
	g.lonMax = -math.MaxFloat32
	g.latMin = math.MaxFloat32
	g.latMax = -math.MaxFloat32

	for idx := len(g.matrix) - 1; idx >= 0; idx-- {
		c := &g.matrix[idx]
		if c.lon >= g.lonMax {
			g.lonMax = c.lon
		}
		if c.lon <= g.lonMin {
			g.lonMin = c.lon
		}
		if c.lat >= g.latMax {
			g.latMax = c.lat
		}
		if c.lat <= g.latMin {
			g.latMin = c.lat
		}
	}

	// NaN coordinates never win a comparison; keep the box ordered anyway
	if g.lonMin > g.lonMax {
		g.lonMin, g.lonMax = g.lonMax, g.lonMin
	}
	if g.latMin > g.latMax {
		g.latMin, g.latMax = g.latMax, g.latMin
	}

	g.dLat = (g.latMax - g.latMin) / float32(g.ny)
	g.dLong = (g.lonMax - g.lonMin) / float32(g.nx)
}

// ComputeSurface returns the approximate area in m² of a cell centred at the
// given latitude, using the grid's average cell size.
func (g *Grid) ComputeSurface(lat, lon float64) float64 {
	dlat := float64(g.dLat)
	dlon := float64(g.dLong)
	return EarthRadius * deg2rad(dlat) * EarthRadius * deg2rad(dlon) * math.Cos(deg2rad(lat))
}

func deg2rad(v float64) float64 {
	return v * math.Pi / 180
}

// NX returns the number of columns.
func (g *Grid) NX() int { return g.nx }

// NY returns the number of rows.
func (g *Grid) NY() int { return g.ny }

// NCell returns nx * ny.
func (g *Grid) NCell() int { return len(g.matrix) }

// NOceanCell returns the number of non-land cells.
func (g *Grid) NOceanCell() int { return len(g.oceanCells) }

// Cell returns the cell at column i, row j.
func (g *Grid) Cell(i, j int) *Cell {
	return &g.matrix[j*g.nx+i]
}

// CellAt returns the cell with linear index j*nx + i.
func (g *Grid) CellAt(index int) *Cell {
	return &g.matrix[index]
}

// Cells returns every cell. The slice must not be modified.
func (g *Grid) Cells() []*Cell { return g.cells }

// OceanCells returns the non-land cells. The slice must not be modified.
func (g *Grid) OceanCells() []*Cell { return g.oceanCells }

// Neighbours returns the cells whose column and row differ from c's by at most
// r, clamped to the grid bounds. The result includes c itself and iterates
// columns in the outer loop.
func (g *Grid) Neighbours(c *Cell, r int) []*Cell {
	return g.AppendNeighbours(nil, c, r)
}

// AppendNeighbours is Neighbours appending into dst to reuse a buffer.
func (g *Grid) AppendNeighbours(dst []*Cell, c *Cell, r int) []*Cell {
	im1 := max(c.i-r, 0)
	ip1 := min(c.i+r, g.nx-1)
	jm1 := max(c.j-r, 0)
	jp1 := min(c.j+r, g.ny-1)

	for i := im1; i <= ip1; i++ {
		for j := jm1; j <= jp1; j++ {
			dst = append(dst, &g.matrix[j*g.nx+i])
		}
	}
	return dst
}

// LatMin returns the southernmost cell-centre latitude.
func (g *Grid) LatMin() float32 { return g.latMin }

// LatMax returns the northernmost cell-centre latitude.
func (g *Grid) LatMax() float32 { return g.latMax }

// LonMin returns the westernmost cell-centre longitude.
func (g *Grid) LonMin() float32 { return g.lonMin }

// LonMax returns the easternmost cell-centre longitude.
func (g *Grid) LonMax() float32 { return g.lonMax }

// DLat returns the average cell height in degrees.
func (g *Grid) DLat() float32 { return g.dLat }

// DLong returns the average cell width in degrees.
func (g *Grid) DLong() float32 { return g.dLong }
