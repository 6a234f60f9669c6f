package generator

import (
	"fmt"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/placement"
	"github.com/lawnchairsociety/dungeongen/internal/refine"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// Default loop limits and placement settings.
const (
	DefaultFloors            = 100
	DefaultMaxAttempts       = 20
	DefaultMaxIterations     = 5
	DefaultMaxRefineFailures = 3
	DefaultMergeThreshold    = 3
	DefaultCrossCount        = 12
	DefaultCrossBandMin      = 50
	DefaultCrossBandMax      = 58

	// finalMergeRounds bounds the forced merge run once the refine loop is
	// exhausted.
	finalMergeRounds = 8
)

// DefaultEntry is where floor 0 starts, and any floor without a generated
// predecessor.
var DefaultEntry = lattice.Point{X: lattice.Size / 2, Y: lattice.Size / 2}

// Options configure one dungeon run.
type Options struct {
	// Seed is the 10-digit master seed. Empty draws one at random.
	Seed     string
	Strategy terrain.Strategy
	// Param is the strategy parameter; zero selects the strategy default.
	Param int
	// DiversifyFraction is the share of corridor cells the diversifier
	// visits. Zero disables it.
	DiversifyFraction float64
	Floors            int
	// Levels restricts generation to these levels. Nil generates all floors.
	Levels            []int
	MaxAttempts       int
	MaxIterations     int
	MaxRefineFailures int
	MergeThreshold    int
	CrossBand         placement.Band
	CrossCount        int
	CheatMode         bool
	// RequireAllTiles rejects an attempt in which a pinned or level tile
	// found no cell. Tiles held back by their dungeon cap never count.
	RequireAllTiles bool
	// RepairTarget is the terrain written by path completion during repairs.
	RepairTarget refine.Target
}

// DefaultOptions returns a voronoi run over every floor.
func DefaultOptions() Options {
	return Options{
		Strategy:          terrain.Voronoi,
		Floors:            DefaultFloors,
		MaxAttempts:       DefaultMaxAttempts,
		MaxIterations:     DefaultMaxIterations,
		MaxRefineFailures: DefaultMaxRefineFailures,
		MergeThreshold:    DefaultMergeThreshold,
		CrossBand:         placement.Band{Min: DefaultCrossBandMin, Max: DefaultCrossBandMax},
		CrossCount:        DefaultCrossCount,
	}
}

// normalize fills zero limits with defaults and rejects settings generation
// cannot start with.
func (o *Options) normalize() error {
	if o.Seed == "" {
		o.Seed = seed.Generate()
	}
	if err := seed.Validate(o.Seed); err != nil {
		return err
	}
	if o.Strategy == "" {
		o.Strategy = terrain.Voronoi
	}
	s, err := terrain.ParseStrategy(string(o.Strategy))
	if err != nil {
		return err
	}
	o.Strategy = s
	if o.Param < 0 {
		return fmt.Errorf("%w: param %d", ErrInvalidOptions, o.Param)
	}
	if o.DiversifyFraction < 0 || o.DiversifyFraction > 1 {
		return fmt.Errorf("%w: diversify fraction %v outside [0,1]", ErrInvalidOptions, o.DiversifyFraction)
	}
	if o.Floors <= 0 {
		o.Floors = DefaultFloors
	}
	for _, level := range o.Levels {
		if level < 0 || level >= o.Floors {
			return fmt.Errorf("%w: level %d outside [0,%d)", ErrInvalidOptions, level, o.Floors)
		}
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.MaxRefineFailures <= 0 {
		o.MaxRefineFailures = DefaultMaxRefineFailures
	}
	if o.MergeThreshold <= 0 {
		o.MergeThreshold = DefaultMergeThreshold
	}
	return nil
}

// RunKey names a run the way generated dungeons are filed:
// strategy_seed_param_cheat.
func (o Options) RunKey() string {
	cheat := "nocheat"
	if o.CheatMode {
		cheat = "cheat"
	}
	return fmt.Sprintf("%s_%s_%d_%s", o.Strategy, o.Seed, o.Param, cheat)
}
