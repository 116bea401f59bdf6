package telemetry

import (
	"github.com/pthm-cable/shoal/grid"
	"github.com/pthm-cable/shoal/population"
)

// EventCounts holds the movement events of one species within a window.
type EventCounts struct {
	Resampled int
	Walked    int
	Left      int
	FellBack  int
}

// Collector accumulates movement events between flushes and produces one
// StepStats per species. It implements movement.Recorder.
type Collector struct {
	replicate int
	species   []string
	index     map[string]int
	nCell     int

	windowStart int
	counts      []EventCounts
}

// NewCollector creates a collector for the given species, in species index
// order, over a grid of nCell cells.
func NewCollector(replicate int, species []string, nCell int) *Collector {
	index := make(map[string]int, len(species))
	for i, name := range species {
		index[name] = i
	}
	return &Collector{
		replicate: replicate,
		species:   species,
		index:     index,
		nCell:     nCell,
		counts:    make([]EventCounts, len(species)),
	}
}

func (c *Collector) counter(species string) *EventCounts {
	i, ok := c.index[species]
	if !ok {
		return &EventCounts{}
	}
	return &c.counts[i]
}

// Resampled records a school drawn from its whole distribution.
func (c *Collector) Resampled(species string) { c.counter(species).Resampled++ }

// Walked records a local move.
func (c *Collector) Walked(species string) { c.counter(species).Walked++ }

// Left records a school going out of the domain.
func (c *Collector) Left(species string) { c.counter(species).Left++ }

// FellBack records a local move that had to be replaced by a resample.
func (c *Collector) FellBack(species string) { c.counter(species).FellBack++ }

// Counts returns the events recorded for species sp since the last flush.
func (c *Collector) Counts(sp int) EventCounts { return c.counts[sp] }

// ShouldFlush reports whether interval steps have passed since the last
// flush. A zero interval never flushes.
func (c *Collector) ShouldFlush(step, interval int) bool {
	return interval > 0 && step+1-c.windowStart >= interval
}

// Flush produces one StepStats per species from the event counters and the
// population state at the end of step, then resets the counters.
func (c *Collector) Flush(step int, g *grid.Grid, records []population.Record) []StepStats {
	perCell := make([][]float64, len(c.species))
	for i := range perCell {
		perCell[i] = make([]float64, c.nCell)
	}

	out := make([]StepStats, len(c.species))
	for i, name := range c.species {
		ev := c.counts[i]
		out[i] = StepStats{
			Replicate: c.replicate,
			Step:      step,
			Species:   name,
			Resampled: ev.Resampled,
			Walked:    ev.Walked,
			Left:      ev.Left,
			FellBack:  ev.FellBack,
		}
	}

	for _, r := range records {
		if r.Species < 0 || r.Species >= len(out) {
			continue
		}
		s := &out[r.Species]
		s.Schools++
		switch {
		case r.Out:
			s.Out++
		case r.Cell >= 0:
			s.Located++
			perCell[r.Species][r.Cell]++
		}
	}

	for i := range out {
		occupied := occupiedValues(perCell[i], g)
		out[i].OccupiedCells = len(occupied)
		out[i].MeanPerCell, out[i].StdPerCell, out[i].P50PerCell, out[i].P90PerCell, out[i].MaxPerCell =
			ComputeOccupancyStats(occupied)
	}

	c.windowStart = step + 1
	clear(c.counts)
	return out
}

// occupiedValues keeps the counts of occupied ocean cells.
func occupiedValues(perCell []float64, g *grid.Grid) []float64 {
	out := perCell[:0]
	for idx, n := range perCell {
		if n > 0 && (g == nil || !g.CellAt(idx).IsLand()) {
			out = append(out, n)
		}
	}
	return out
}
