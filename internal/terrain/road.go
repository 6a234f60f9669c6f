package terrain

import (
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

type roadEdge struct {
	to, from lattice.Point
}

// carveRoad grows a spanning tree over the cells spaced w apart from start,
// frontier style. Popping a frontier edge whose far end is still EMPTY carves
// the w cells from that end back to the cell that enqueued it.
func carveRoad(l *lattice.Lattice, start lattice.Point, w int, t lattice.Terrain, rng *seed.Random) {
	l.Set(start, t.Path)
	if w < 1 {
		w = 1
	}

	frontier := roadEdges(l, start, w, t)
	seed.ShuffleSlice(rng, frontier)
	for len(frontier) > 0 {
		e := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if l.At(e.to) != t.Empty {
			continue
		}

		back := lattice.Point{X: sign(e.from.X - e.to.X), Y: sign(e.from.Y - e.to.Y)}
		p := e.to
		for i := 0; i < w; i++ {
			l.Set(p, t.Path)
			p = p.Add(back)
		}

		frontier = append(frontier, roadEdges(l, e.to, w, t)...)
		seed.ShuffleSlice(rng, frontier)
	}
}

func roadEdges(l *lattice.Lattice, from lattice.Point, w int, t lattice.Terrain) []roadEdge {
	var out []roadEdge
	for _, d := range lattice.AllDirections() {
		step := d.Offset()
		to := lattice.Point{X: from.X + step.X*w, Y: from.Y + step.Y*w}
		if v, ok := l.Get(to); ok && v == t.Empty {
			out = append(out, roadEdge{to: to, from: from})
		}
	}
	return out
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
