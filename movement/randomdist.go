package movement

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/shoal/grid"
)

// RandomParams configures a RandomDistribution.
type RandomParams struct {
	Species   int
	Name      string
	Range     int
	NCell     int // Home-range size; <= 0 means the whole ocean
	FixedSeed bool
	Seed      int64
}

// RandomDistribution confines schools to a fixed home range: the whole ocean
// or a connected patch grown from a random seed cell. Unlocated schools are
// dropped anywhere in the home range; located schools take one step of a
// random walk over the ocean cells within range.
type RandomDistribution struct {
	grid      *grid.Grid
	rangeCell int
	homeRange []*grid.Cell
	rng       *rand.Rand

	logger   *slog.Logger
	recorder Recorder
	buf      []*grid.Cell
}

// NewRandomDistribution builds the strategy and its home range.
func NewRandomDistribution(g *grid.Grid, p RandomParams, opts Options) (*RandomDistribution, error) {
	opts = opts.withDefaults()
	if g.NOceanCell() == 0 {
		return nil, fmt.Errorf("species %s: grid has no ocean cell to distribute schools on", p.Name)
	}

	size := p.NCell
	if size <= 0 {
		size = g.NOceanCell()
		opts.Logger.Info("no home-range size, schools are distributed over the whole domain",
			"species", p.Name)
	}

	d := &RandomDistribution{
		grid:      g,
		rangeCell: p.Range,
		rng:       NewStream(p.FixedSeed, p.Seed, p.Species),
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	d.homeRange = d.createHomeRange(size, p.Name)
	return d, nil
}

// HomeRange returns the cells schools are confined to.
func (d *RandomDistribution) HomeRange() []*grid.Cell { return d.homeRange }

func (d *RandomDistribution) createHomeRange(size int, species string) []*grid.Cell {
	g := d.grid
	nOcean := g.NOceanCell()

	if size >= nOcean {
		out := make([]*grid.Cell, 0, nOcean)
		for j := 0; j < g.NY(); j++ {
			for i := 0; i < g.NX(); i++ {
				if c := g.Cell(i, j); !c.IsLand() {
					out = append(out, c)
				}
			}
		}
		return out
	}

	// Random ocean seed cell
	var seed *grid.Cell
	for seed == nil {
		i := dealIndex(g.NX(), d.rng.Float64())
		j := dealIndex(g.NY(), d.rng.Float64())
		if c := g.Cell(i, j); !c.IsLand() {
			seed = c
		}
	}

	chosen := make([]bool, g.NCell())
	patch := make([]*grid.Cell, 1, size)
	patch[0] = seed
	chosen[seed.Index()] = true

	// Breadth-first growth, one ring of the frontier at a time
	first, last := 0, 0
	var nb []*grid.Cell
	for len(patch) < size {
		for k := first; k <= last && len(patch) < size; k++ {
			nb = g.AppendNeighbours(nb[:0], patch[k], 1)
			for _, c := range nb {
				if len(patch) >= size {
					break
				}
				if !c.IsLand() && !chosen[c.Index()] {
					chosen[c.Index()] = true
					patch = append(patch, c)
				}
			}
		}
		if len(patch)-1 == last {
			d.logger.Warn("home range stopped growing before the requested size",
				"species", species,
				"requested", size,
				"size", len(patch),
			)
			break
		}
		first, last = last+1, len(patch)-1
	}
	return patch
}

func (d *RandomDistribution) Move(s School, step int) error {
	if s.IsUnlocated() {
		s.MoveToCell(randomDeal(d.homeRange, d.rng))
		d.recorder.Resampled(s.Species())
		return nil
	}

	d.buf = d.grid.AppendNeighbours(d.buf[:0], s.Cell(), d.rangeCell)
	cells := d.buf[:0]
	for _, c := range d.buf {
		if !c.IsLand() {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		d.logger.Warn("no ocean cell around school, redrawing from the home range",
			"species", s.Species(),
			"step", step,
			"cell", s.Cell().Index(),
		)
		d.recorder.FellBack(s.Species())
		s.MoveToCell(randomDeal(d.homeRange, d.rng))
		return nil
	}

	s.MoveToCell(randomDeal(cells, d.rng))
	d.recorder.Walked(s.Species())
	return nil
}
