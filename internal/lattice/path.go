package lattice

import "errors"

// ErrNoPath is returned when no PATH cell can be reached from an anchor.
var ErrNoPath = errors.New("lattice: no path cell reachable")

// completeOrder is the neighbour order of the path-completion search. It
// decides which of several equally short routes is carved.
var completeOrder = [8]Point{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	{1, -1}, {-1, 1}, {1, 1}, {-1, -1},
}

// CompletePath searches breadth first from anchor over EMPTY and PATH cells,
// diagonal steps allowed, for the nearest PATH cell. Every EMPTY cell on the
// route found (the anchor included, if EMPTY) is set to target. It returns
// the cells it converted.
func CompletePath(l *Lattice, anchor Point, t Terrain, target TileValue) ([]Point, error) {
	if !l.InBounds(anchor) {
		return nil, ErrNoPath
	}

	parent := make([]int32, len(l.cells))
	for i := range parent {
		parent[i] = -1
	}
	start := l.index(anchor)
	parent[start] = int32(start)

	queue := []Point{anchor}
	for head := 0; head < len(queue); head++ {
		p := queue[head]
		if l.At(p) == t.Path {
			return l.convertRoute(parent, l.index(p), start, t, target), nil
		}
		for _, d := range completeOrder {
			q := p.Add(d)
			if !l.InBounds(q) {
				continue
			}
			i := l.index(q)
			if parent[i] >= 0 {
				continue
			}
			if v := l.cells[i]; v != t.Empty && v != t.Path {
				continue
			}
			parent[i] = int32(l.index(p))
			queue = append(queue, q)
		}
	}
	return nil, ErrNoPath
}

func (l *Lattice) convertRoute(parent []int32, end, start int, t Terrain, target TileValue) []Point {
	var converted []Point
	for i := end; ; i = int(parent[i]) {
		if l.cells[i] == t.Empty {
			l.cells[i] = target
			converted = append(converted, Point{X: i / l.n, Y: i % l.n})
		}
		if i == start {
			return converted
		}
	}
}
