package expr

import "math/rand/v2"

// golden spreads consecutive seeds apart in the second PCG word.
const golden = 0x9e3779b97f4a7c15

// NewRand returns a generator for SampleRandom that repeats for a seed.
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s*golden+1))
}
