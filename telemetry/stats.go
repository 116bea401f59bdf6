package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StepStats holds the distribution of one species at the end of a step.
type StepStats struct {
	Replicate int    `csv:"replicate"`
	Step      int    `csv:"step"`
	Species   string `csv:"species"`

	// Population state at step end
	Schools int `csv:"schools"`
	Located int `csv:"located"`
	Out     int `csv:"out"`

	// Movement events since the previous record
	Resampled int `csv:"resampled"`
	Walked    int `csv:"walked"`
	Left      int `csv:"left"`
	FellBack  int `csv:"fell_back"`

	// Schools per occupied cell
	OccupiedCells int     `csv:"occupied_cells"`
	MeanPerCell   float64 `csv:"mean_per_cell"`
	StdPerCell    float64 `csv:"std_per_cell"`
	P50PerCell    float64 `csv:"p50_per_cell"`
	P90PerCell    float64 `csv:"p90_per_cell"`
	MaxPerCell    float64 `csv:"max_per_cell"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeOccupancyStats returns the mean, population standard deviation,
// median, 90th percentile and maximum of values.
func ComputeOccupancyStats(values []float64) (mean, std, p50, p90, maxV float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p50, p90, floats.Max(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("replicate", s.Replicate),
		slog.Int("step", s.Step),
		slog.String("species", s.Species),
		slog.Int("schools", s.Schools),
		slog.Int("located", s.Located),
		slog.Int("out", s.Out),
		slog.Int("resampled", s.Resampled),
		slog.Int("walked", s.Walked),
		slog.Int("left", s.Left),
		slog.Int("fell_back", s.FellBack),
		slog.Int("occupied_cells", s.OccupiedCells),
		slog.Float64("mean_per_cell", s.MeanPerCell),
		slog.Float64("p90_per_cell", s.P90PerCell),
		slog.Float64("max_per_cell", s.MaxPerCell),
	)
}
