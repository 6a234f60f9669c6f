// Package terrain carves the initial corridor skeleton of a floor and thins
// it out afterwards without breaking reachability.
package terrain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// Strategy names a carving algorithm.
type Strategy string

const (
	Maze    Strategy = "maze"
	Road    Strategy = "road"
	Voronoi Strategy = "voronoi"
	Shuffle Strategy = "shuffle"
)

// Default parameters: maze depth budget, road spacing, voronoi site count.
const (
	DefaultMazeDepth    = 50
	DefaultRoadSpacing  = 15
	DefaultVoronoiSites = 25
)

var (
	ErrUnknownStrategy = errors.New("terrain: unknown strategy")
	ErrStartOutside    = errors.New("terrain: start cell outside the lattice")
)

// concrete lists the strategies Shuffle picks from, in draw order.
var concrete = []Strategy{Maze, Road, Voronoi}

// Strategies returns every accepted strategy name.
func Strategies() []Strategy {
	return []Strategy{Maze, Road, Voronoi, Shuffle}
}

// ParseStrategy accepts a strategy name in any case.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Strategies(), st) {
		return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownStrategy, s, StrategyList())
	}
	return st, nil
}

// StrategyList joins the accepted strategy names for messages.
func StrategyList() string {
	names := make([]string, 0, 4)
	for _, s := range Strategies() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// DefaultParam returns the parameter a strategy uses when none is given.
func DefaultParam(s Strategy) int {
	switch s {
	case Maze:
		return DefaultMazeDepth
	case Road:
		return DefaultRoadSpacing
	case Voronoi:
		return DefaultVoronoiSites
	default:
		return 0
	}
}

// Generate carves a PATH skeleton into l from start and returns the strategy
// that actually ran (Shuffle resolves to one of the others, with that
// strategy's default parameter). A param <= 0 selects the default. The start
// cell is never EMPTY afterwards.
func Generate(l *lattice.Lattice, start lattice.Point, s Strategy, param int, t lattice.Terrain, rng *seed.Random) (Strategy, error) {
	if !l.InBounds(start) {
		return "", fmt.Errorf("%w: %v", ErrStartOutside, start)
	}
	if s == Shuffle {
		s = seed.Choice(rng, concrete)
		param = 0
	}
	if param <= 0 {
		param = DefaultParam(s)
	}

	switch s {
	case Maze:
		carveMaze(l, start, param, t, rng)
	case Road:
		carveRoad(l, start, param, t, rng)
	case Voronoi:
		carveVoronoi(l, start, param, t, rng)
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownStrategy, s)
	}

	if l.At(start) == t.Empty {
		l.Set(start, t.Path)
	}
	return s, nil
}
