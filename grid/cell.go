package grid

import "fmt"

// Cell is one point of the grid. Cells are created by the grid and never
// mutated afterwards, apart from the surface set during construction.
type Cell struct {
	index   int
	i, j    int
	lat     float32
	lon     float32
	land    bool
	surface float32
}

// Index returns the linear index j*nx + i.
func (c *Cell) Index() int { return c.index }

// I returns the column of the cell.
func (c *Cell) I() int { return c.i }

// J returns the row of the cell.
func (c *Cell) J() int { return c.j }

// Lat returns the latitude of the cell centre in degrees.
func (c *Cell) Lat() float32 { return c.lat }

// Lon returns the longitude of the cell centre in degrees.
func (c *Cell) Lon() float32 { return c.lon }

// IsLand reports whether the cell is land.
func (c *Cell) IsLand() bool { return c.land }

// Surface returns the cell area in square metres.
func (c *Cell) Surface() float32 { return c.surface }

func (c *Cell) String() string {
	kind := "ocean"
	if c.land {
		kind = "land"
	}
	return fmt.Sprintf("cell(%d,%d %s)", c.i, c.j, kind)
}
