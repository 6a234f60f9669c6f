package refine

import (
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// Merge joins disconnected groups when there are more than threshold of
// them. Groups are paired in label order (0 with 1, 2 with 3, an odd last one
// with 0); each pair is joined by a stepped line between one random cell of
// each, written as HIDDEN over EMPTY and CROSS cells. A local refine pass
// then smooths the new connectors. It returns the group count found before
// merging.
func (r *Refiner) Merge(l *lattice.Lattice, threshold int) (int, error) {
	if threshold < 1 {
		threshold = 1
	}
	groups := lattice.Components(l, r.terrain)
	if len(groups) <= threshold {
		return len(groups), nil
	}

	for i := 0; i+1 < len(groups); i += 2 {
		r.connect(l, groups[i], groups[i+1])
	}
	if len(groups)%2 == 1 {
		r.connect(l, groups[len(groups)-1], groups[0])
	}
	return len(groups), r.Refine(l)
}

// MergeAll merges with a threshold of one until a single group remains or
// rounds run out. It reports whether the lattice ended up in one group.
func (r *Refiner) MergeAll(l *lattice.Lattice, rounds int) (bool, error) {
	for i := 0; i < rounds; i++ {
		n, err := r.Merge(l, 1)
		if err != nil {
			return false, err
		}
		if n <= 1 {
			return true, nil
		}
	}
	return len(lattice.Components(l, r.terrain)) <= 1, nil
}

func (r *Refiner) connect(l *lattice.Lattice, a, b []lattice.Point) {
	from := seed.Choice(r.rng, a)
	to := seed.Choice(r.rng, b)
	for _, p := range lattice.StepLine(from, to) {
		if v := l.At(p); v == r.terrain.Empty || v == r.terrain.Cross {
			l.Set(p, r.terrain.Hidden)
		}
	}
}
