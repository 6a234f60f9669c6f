package seed

import (
	"math/rand"
)

// Random is the deterministic stream one floor draws from. Two Randoms built
// from the same seed string produce the same sequence.
type Random struct {
	rng *rand.Rand
}

// New returns the stream for seed string s.
func New(s string) *Random {
	return &Random{rng: rand.New(rand.NewSource(Hash(s)))}
}

// NewFromInt returns a stream seeded directly, for tests and previews.
func NewFromInt(v int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(v))}
}

// Intn returns a uniform int in [0, n). n must be positive.
func (r *Random) Intn(n int) int {
	return r.rng.Intn(n)
}

// Range returns a uniform int in [lo, hi], both inclusive.
func (r *Random) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.rng.Intn(hi-lo+1)
}

// Float64 returns a uniform float in [0, 1).
func (r *Random) Float64() float64 {
	return r.rng.Float64()
}

// Shuffle permutes n elements through swap.
func (r *Random) Shuffle(n int, swap func(i, j int)) {
	r.rng.Shuffle(n, swap)
}

// Weighted returns an index chosen with probability proportional to its
// weight. Non-positive weights are never chosen; it returns -1 when no weight
// is positive.
func (r *Random) Weighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	roll := r.rng.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	return last
}

// Choice returns a uniformly chosen element of items. It panics on an empty
// slice, like indexing would.
func Choice[T any](r *Random, items []T) T {
	return items[r.Intn(len(items))]
}

// ShuffleSlice permutes items in place.
func ShuffleSlice[T any](r *Random, items []T) {
	r.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
}
