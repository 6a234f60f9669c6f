package terrain

import (
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// mazeLookahead is how many cells ahead must be EMPTY before the carver may
// step in a direction. Four keeps a solid wall between parallel corridors.
const mazeLookahead = 4

type mazeFrame struct {
	at    lattice.Point
	depth int
	dirs  []lattice.Direction
	next  int
}

func newMazeFrame(at lattice.Point, depth int, rng *seed.Random) mazeFrame {
	dirs := lattice.AllDirections()
	seed.ShuffleSlice(rng, dirs)
	return mazeFrame{at: at, depth: depth, dirs: dirs}
}

// carveMaze is a depth-limited backtracking carver. Each frame tries its
// directions in shuffled order; a successful step carves two cells and
// descends with one less unit of depth. The explicit stack keeps the walk
// order of the recursive formulation.
func carveMaze(l *lattice.Lattice, start lattice.Point, depth int, t lattice.Terrain, rng *seed.Random) {
	l.Set(start, t.Path)
	if depth <= 0 {
		return
	}

	stack := []mazeFrame{newMazeFrame(start, depth, rng)}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := top.dirs[top.next]
		top.next++
		if !mazeClear(l, top.at, d, t) {
			continue
		}

		step := d.Offset()
		one := top.at.Add(step)
		two := one.Add(step)
		l.Set(one, t.Path)
		l.Set(two, t.Path)

		if childDepth := top.depth - 1; childDepth > 0 {
			stack = append(stack, newMazeFrame(two, childDepth, rng))
		}
	}
}

func mazeClear(l *lattice.Lattice, from lattice.Point, d lattice.Direction, t lattice.Terrain) bool {
	step := d.Offset()
	p := from
	for i := 0; i < mazeLookahead; i++ {
		p = p.Add(step)
		v, ok := l.Get(p)
		if !ok || v != t.Empty {
			return false
		}
	}
	return true
}
