package maps

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/shoal/grid"
)

// SynthParams controls synthetic habitat generation.
type SynthParams struct {
	Seed        int64
	Frequency   float64 // Base noise frequency in cells^-1
	Octaves     int
	Persistence float64 // Amplitude multiplier per octave
	Cutoff      float64 // Values below this become 0 (absence)
	Offset      float64 // Shifts the sampling window, e.g. per season
}

// DefaultSynthParams returns parameters giving a few large patches.
func DefaultSynthParams(seed int64) SynthParams {
	return SynthParams{
		Seed:        seed,
		Frequency:   0.08,
		Octaves:     4,
		Persistence: 0.5,
		Cutoff:      0.45,
	}
}

// Synthesize builds a presence probability map from fractal simplex noise.
// Ocean values lie in [0, 1); land is NaN.
func Synthesize(g *grid.Grid, p SynthParams) *GridMap {
	if p.Octaves < 1 {
		p.Octaves = 1
	}
	noise := opensimplex.NewNormalized(p.Seed)

	m := NewGridMap(g, 0)
	for _, c := range g.OceanCells() {
		x := float64(c.I()) + p.Offset
		y := float64(c.J()) + p.Offset
		v := octaveNoise(noise, x, y, p.Octaves, p.Frequency, p.Persistence)
		if v < p.Cutoff {
			v = 0
		}
		m.Set(c.I(), c.J(), float32(v))
	}
	return m
}

// octaveNoise layers octaves of noise, normalised back to the base range.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
