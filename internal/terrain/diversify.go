package terrain

import (
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// maxCluster bounds how many cells one removal may clear.
const maxCluster = 5

// Diversify removes clusters of corridor so terrain looks less regular. A
// floor(count*fraction) sample of the PATH/HIDDEN cells is visited in random
// order; each one, plus some of its corridor neighbours, is cleared and kept
// cleared only if every other cell reachable from ref is still reachable.
// It returns how many cells were cleared.
func Diversify(l *lattice.Lattice, ref lattice.Point, fraction float64, t lattice.Terrain, rng *seed.Random) int {
	if fraction <= 0 || !l.InBounds(ref) || !t.IsOpen(l.At(ref)) {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}

	candidates := l.Collect(t.IsOpen)
	seed.ShuffleSlice(rng, candidates)
	candidates = candidates[:int(float64(len(candidates))*fraction)]

	reach, reachable := l.Reach(ref, t.IsOpen)
	removed := 0
	saved := make([]lattice.TileValue, 0, maxCluster)
	for _, c := range candidates {
		if c == ref || !t.IsOpen(l.At(c)) {
			continue
		}

		cluster := []lattice.Point{c}
		neighbors := l.AxisNeighbors(c)
		seed.ShuffleSlice(rng, neighbors)
		for _, q := range neighbors {
			if len(cluster) == maxCluster {
				break
			}
			if q != ref && t.IsOpen(l.At(q)) {
				cluster = append(cluster, q)
			}
		}

		saved = saved[:0]
		lost := 0
		for _, p := range cluster {
			saved = append(saved, l.At(p))
			if l.Visited(reach, p) {
				lost++
			}
			l.Set(p, t.Empty)
		}

		after, count := l.Reach(ref, t.IsOpen)
		if count == reachable-lost {
			reach, reachable = after, count
			removed += len(cluster)
			continue
		}
		for i, p := range cluster {
			l.Set(p, saved[i])
		}
	}
	return removed
}
