package movement

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/maps"
)

// MapParams configures a MapDistribution.
type MapParams struct {
	Species   int  // Species index, used for fixed seeds
	Range     int  // Movement range in cells
	NStepYear int  // Used to report ages in years
	FixedSeed bool
}

// MapDistribution places schools according to age- and time-indexed
// probability maps. While the applicable map is unchanged a located school
// only moves among its positive neighbours; otherwise it is resampled over
// the whole grid by rejection sampling.
type MapDistribution struct {
	grid      *grid.Grid
	maps      *maps.Set
	rangeCell int
	nStepYear int

	// envelope[i] is the rejection envelope of map i
	envelope []float32

	rdCell   *rand.Rand
	rdAccept *rand.Rand
	rdWalk   *rand.Rand

	logger   *slog.Logger
	recorder Recorder
	buf      []*grid.Cell
}

// NewMapDistribution builds the strategy for the species owning set.
func NewMapDistribution(g *grid.Grid, set *maps.Set, p MapParams, opts Options) *MapDistribution {
	opts = opts.withDefaults()

	if p.FixedSeed {
		opts.Logger.Warn("fixed random seed: identical initial distributions give identical movement",
			"species", set.Species())
	}

	d := &MapDistribution{
		grid:      g,
		maps:      set,
		rangeCell: p.Range,
		nStepYear: max(p.NStepYear, 1),
		envelope:  make([]float32, set.NMap()),
		rdCell:    NewStream(p.FixedSeed, seedCellDraw, p.Species),
		rdAccept:  NewStream(p.FixedSeed, seedAcceptDraw, p.Species),
		rdWalk:    NewStream(p.FixedSeed, seedWalkDraw, p.Species),
		logger:    opts.Logger,
		recorder:  opts.Recorder,
	}
	for i := range d.envelope {
		d.envelope[i] = Envelope(set.Map(i))
	}
	return d
}

// Envelope returns the rejection envelope of a map: its maximum, or 0 when
// the maximum is >= 1. A zero envelope accepts every positive cell, which
// turns presence/absence maps into uniform sampling over their positive cells.
func Envelope(m *maps.GridMap) float32 {
	if m == nil {
		return 0
	}
	mx := m.Max()
	if mx >= 1 {
		return 0
	}
	return mx
}

// Envelope returns the rejection envelope used for map i.
func (d *MapDistribution) Envelope(i int) float32 {
	return d.envelope[i]
}

func (d *MapDistribution) Move(s School, step int) error {
	age := s.AgeDt()
	idx := d.maps.IndexMap(age, step)
	m := d.maps.Map(idx)
	if m == nil {
		s.Out()
		d.recorder.Left(s.Species())
		return nil
	}

	sameMap := age > 0 && step > 0 && idx == d.maps.IndexMap(age-1, step-1)
	if !sameMap || s.IsUnlocated() {
		return d.resample(s, idx, m)
	}

	cells := d.accessibleCells(s, m, step)
	if len(cells) == 0 {
		d.logger.Warn("no accessible cell around school, resampling over the grid",
			"species", s.Species(),
			"age_dt", age,
			"step", step,
			"cell", s.Cell().Index(),
		)
		d.recorder.FellBack(s.Species())
		return d.resample(s, idx, m)
	}

	s.MoveToCell(randomDeal(cells, d.rdWalk))
	d.recorder.Walked(s.Species())
	return nil
}

// resample draws cells uniformly over the grid and accepts one with
// probability value/envelope. Cells with a value <= 0 are rejected without
// an acceptance draw; NaN cells, land included, consume one before being
// rejected, which keeps fixed-seed draw sequences aligned with reference runs.
func (d *MapDistribution) resample(s School, idx int, m *maps.GridMap) error {
	n := d.grid.NCell()
	env := float64(d.envelope[idx])

	for it := 0; it < MaxSamplingIterations; it++ {
		c := d.grid.CellAt(dealIndex(n, d.rdCell.Float64()))
		p := float64(m.Value(c))
		if p <= 0 {
			continue
		}
		u := d.rdAccept.Float64()
		if math.IsNaN(p) || c.IsLand() || p < u*env {
			continue
		}
		s.MoveToCell(c)
		d.recorder.Resampled(s.Species())
		return nil
	}

	return &SamplingError{
		Species:    s.Species(),
		AgeYears:   float64(s.AgeDt()) / float64(d.nStepYear),
		Map:        idx,
		Iterations: MaxSamplingIterations,
	}
}

// accessibleCells returns the ocean neighbours of the school with a positive
// value in m. The returned slice is reused across calls.
func (d *MapDistribution) accessibleCells(s School, m *maps.GridMap, step int) []*grid.Cell {
	cell := s.Cell()
	if !(m.Value(cell) > 0) {
		d.logger.Warn("school outside the area of its current map",
			"species", s.Species(),
			"age_dt", s.AgeDt(),
			"step", step,
			"cell", cell.Index(),
		)
	}

	d.buf = d.grid.AppendNeighbours(d.buf[:0], cell, d.rangeCell)
	out := d.buf[:0]
	for _, c := range d.buf {
		if !c.IsLand() && m.Value(c) > 0 {
			out = append(out, c)
		}
	}
	return out
}
