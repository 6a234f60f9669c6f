// Package refine repairs connectivity of a floor after placement. It only
// ever writes terrain values, so special tiles keep their cells.
package refine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// Target is the terrain a repair writes into EMPTY cells.
type Target int

const (
	TargetRandom Target = iota // PATH or HIDDEN, drawn per route
	TargetPath
	TargetHidden
)

func (t Target) String() string {
	switch t {
	case TargetPath:
		return "path"
	case TargetHidden:
		return "hidden"
	default:
		return "random"
	}
}

// ParseTarget reads a target name. The empty string selects TargetRandom.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return TargetRandom, nil
	case "path":
		return TargetPath, nil
	case "hidden":
		return TargetHidden, nil
	}
	return TargetRandom, fmt.Errorf("refine: unknown target %q", s)
}

// ErrIsolated is returned when an isolated cell cannot be routed to any PATH.
var ErrIsolated = errors.New("refine: isolated cell has no route to a path")

// Refiner holds what every repair pass needs: the terrain ids, the floor's
// random stream and the default target for reconnection routes.
type Refiner struct {
	terrain lattice.Terrain
	rng     *seed.Random
	target  Target
}

// New returns a Refiner drawing from rng.
func New(t lattice.Terrain, rng *seed.Random, target Target) *Refiner {
	return &Refiner{terrain: t, rng: rng, target: target}
}

// Resolve turns a target into a concrete terrain value.
func (r *Refiner) Resolve(target Target) lattice.TileValue {
	switch target {
	case TargetPath:
		return r.terrain.Path
	case TargetHidden:
		return r.terrain.Hidden
	default:
		if r.rng.Intn(2) == 0 {
			return r.terrain.Path
		}
		return r.terrain.Hidden
	}
}

// CompletePath carves a route from anchor to the nearest PATH cell using the
// given target terrain.
func (r *Refiner) CompletePath(l *lattice.Lattice, anchor lattice.Point, target Target) error {
	_, err := lattice.CompletePath(l, anchor, r.terrain, r.Resolve(target))
	return err
}

// Refine runs one local stitching pass over the interior cells, in scan
// order, mutating as it goes:
//
//   - a cell whose 8 neighbours are all EMPTY is rerouted to the nearest PATH;
//   - a cell whose 4 axis neighbours are EMPTY but which touches a populated
//     diagonal gets one bridging cell toward that diagonal;
//   - a cell with exactly one populated axis neighbour and a populated
//     diagonal on the far side gets one bridging cell toward it.
//
// Bridges copy the cell's terrain, or use HIDDEN next to a special tile.
func (r *Refiner) Refine(l *lattice.Lattice) error {
	n := l.N()
	t := r.terrain
	for x := 1; x < n-1; x++ {
		for y := 1; y < n-1; y++ {
			p := lattice.Point{X: x, Y: y}
			v := l.At(p)
			if v == t.Empty || v == t.Cross {
				continue
			}

			left := r.populated(l, x-1, y)
			right := r.populated(l, x+1, y)
			up := r.populated(l, x, y-1)
			down := r.populated(l, x, y+1)

			if !left && !right && !up && !down {
				if r.isolated(l, x, y) {
					if err := r.reroute(l, p, v); err != nil {
						return err
					}
					continue
				}
				r.bridgeDiagonal(l, x, y, r.bridgeValue(v))
				continue
			}

			if count(left, right, up, down) == 1 {
				r.bridgeSingle(l, x, y, left, right, up, down, r.bridgeValue(v))
			}
		}
	}
	return nil
}

func (r *Refiner) populated(l *lattice.Lattice, x, y int) bool {
	v, ok := l.Get(lattice.Point{X: x, Y: y})
	return ok && v != r.terrain.Empty
}

func (r *Refiner) isolated(l *lattice.Lattice, x, y int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if (dx != 0 || dy != 0) && r.populated(l, x+dx, y+dy) {
				return false
			}
		}
	}
	return true
}

// reroute clears p, routes it to the nearest PATH and puts v back.
func (r *Refiner) reroute(l *lattice.Lattice, p lattice.Point, v lattice.TileValue) error {
	l.Set(p, r.terrain.Empty)
	_, err := lattice.CompletePath(l, p, r.terrain, r.Resolve(r.target))
	l.Set(p, v)
	if err != nil {
		return fmt.Errorf("%w at %v", ErrIsolated, p)
	}
	return nil
}

func (r *Refiner) bridgeValue(v lattice.TileValue) lattice.TileValue {
	if r.terrain.IsOpen(v) {
		return v
	}
	return r.terrain.Hidden
}

// bridgeDiagonal checks the left diagonals before the right ones and bridges
// horizontally toward the first populated one.
func (r *Refiner) bridgeDiagonal(l *lattice.Lattice, x, y int, fill lattice.TileValue) {
	switch {
	case r.populated(l, x-1, y-1), r.populated(l, x-1, y+1):
		l.Set(lattice.Point{X: x - 1, Y: y}, fill)
	case r.populated(l, x+1, y-1), r.populated(l, x+1, y+1):
		l.Set(lattice.Point{X: x + 1, Y: y}, fill)
	}
}

// bridgeSingle handles a cell attached on one side only: a populated diagonal
// on the opposite side is joined through the cell's free axis neighbour.
// The first matching diagonal wins.
func (r *Refiner) bridgeSingle(l *lattice.Lattice, x, y int, left, right, up, down bool, fill lattice.TileValue) {
	set := func(px, py int) { l.Set(lattice.Point{X: px, Y: py}, fill) }
	switch {
	case left:
		if r.populated(l, x+1, y-1) {
			set(x, y-1)
		} else if r.populated(l, x+1, y+1) {
			set(x, y+1)
		}
	case right:
		if r.populated(l, x-1, y-1) {
			set(x, y-1)
		} else if r.populated(l, x-1, y+1) {
			set(x, y+1)
		}
	case up:
		if r.populated(l, x-1, y+1) {
			set(x-1, y)
		} else if r.populated(l, x+1, y+1) {
			set(x+1, y)
		}
	case down:
		if r.populated(l, x-1, y-1) {
			set(x-1, y)
		} else if r.populated(l, x+1, y-1) {
			set(x+1, y)
		}
	}
}

func count(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
