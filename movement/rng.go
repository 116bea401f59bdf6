package movement

import (
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/shoal/grid"
)

// Seeds of the three MapDistribution streams in fixed-seed mode. Each is
// XORed with the species index.
const (
	seedCellDraw   = 13
	seedAcceptDraw = 5
	seedWalkDraw   = 1982
)

const (
	lcgMultiplier = 0x5DEECE66D
	lcgAddend     = 0xB
	lcgMask       = 1<<48 - 1
)

// LCG is a 48-bit linear congruential generator (multiplier 0x5DEECE66D).
// Used through rand.New, its Float64 yields the classic 53-bit double
// sequence, so fixed-seed runs stay comparable with reference outputs.
type LCG struct {
	state uint64
}

// NewLCG returns a generator whose state is seed scrambled with the multiplier.
func NewLCG(seed int64) *LCG {
	l := &LCG{}
	l.Seed(seed)
	return l
}

// Seed resets the generator.
func (l *LCG) Seed(seed int64) {
	l.state = (uint64(seed) ^ lcgMultiplier) & lcgMask
}

func (l *LCG) next(bits uint) uint64 {
	l.state = (l.state*lcgMultiplier + lcgAddend) & lcgMask
	return l.state >> (48 - bits)
}

// Uint64 returns 53 random bits, as consumed by rand.Rand.Float64.
func (l *LCG) Uint64() uint64 {
	return l.next(26)<<27 + l.next(27)
}

// NewStream returns a random stream. With fixed set it is seeded with
// base XOR species; otherwise it is seeded from system entropy.
func NewStream(fixed bool, base int64, species int) *rand.Rand {
	if fixed {
		return rand.New(NewLCG(base ^ int64(species)))
	}
	return rand.New(NewLCG(rand.Int64()))
}

// randomDeal picks one of cells using index round((N-1) * u). The rounding
// gives the first and last candidates half the weight of the others.
func randomDeal(cells []*grid.Cell, rng *rand.Rand) *grid.Cell {
	return cells[dealIndex(len(cells), rng.Float64())]
}

func dealIndex(n int, u float64) int {
	return int(math.Floor(float64(n-1)*u + 0.5))
}
