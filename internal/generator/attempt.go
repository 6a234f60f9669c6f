package generator

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/placement"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// Rejection reasons reported to the observer.
const (
	reasonPlacement      = "placement failed"
	reasonMissingTiles   = "tiles not placed"
	reasonSpecialsMoved  = "special tiles changed during repair"
	reasonRefineFailures = "too many refine failures"
	reasonDisconnected   = "disconnected after final merge"
)

// specialCell is one entry of the special-tile snapshot.
type specialCell struct {
	at lattice.Point
	id lattice.TileValue
}

// floorAttempt is one pass through the floor state machine:
// terrain, placement, then check and repair until accepted or abandoned.
type floorAttempt struct {
	gen     *Generator
	level   int
	number  int
	entry   lattice.Point
	rng     *seed.Random
	ledger  *placement.Ledger
	lattice *lattice.Lattice
}

// run returns the accepted floor, or a nil floor and the rejection reason.
// A non-nil error is a configuration error and ends the whole run.
func (a *floorAttempt) run() (*Floor, string, error) {
	g := a.gen
	t := g.roles.Terrain
	opts := g.opts

	l := lattice.New(lattice.Size, t.Empty)
	a.lattice = l
	strategy, err := terrain.Generate(l, a.entry, opts.Strategy, opts.Param, t, a.rng)
	if err != nil {
		return nil, "", err
	}
	if opts.DiversifyFraction > 0 {
		terrain.Diversify(l, a.entry, opts.DiversifyFraction, t, a.rng)
	}

	repair := g.repairer(t, a.rng, opts.RepairTarget)
	placer := placement.New(g.catalog, g.wanderers, repair, a.rng, placement.Options{
		CheatMode:      opts.CheatMode,
		CrossBand:      opts.CrossBand,
		CrossCount:     opts.CrossCount,
		MergeThreshold: opts.MergeThreshold,
	})
	res, err := placer.Place(l, a.level, a.entry, a.ledger)
	if err != nil {
		return nil, reasonPlacement + ": " + err.Error(), nil
	}
	if len(res.Missing) > 0 {
		g.log.Warn("Tiles found no cell", "floor", a.level, "attempt", a.number, "tiles", res.Missing)
		if opts.RequireAllTiles {
			return nil, fmt.Sprintf("%s: %d found no cell", reasonMissingTiles, len(res.Missing)), nil
		}
	}

	snapshot := a.specials(l)
	iterations, failures := 0, 0
	for !lattice.IsConnected(l, a.entry, t) {
		if iterations >= opts.MaxIterations {
			if _, err := repair.MergeAll(l, finalMergeRounds); err != nil {
				return nil, reasonDisconnected + ": " + err.Error(), nil
			}
			if !a.unchanged(l, snapshot) {
				return nil, reasonSpecialsMoved, nil
			}
			if !lattice.IsConnected(l, a.entry, t) {
				return nil, reasonDisconnected, nil
			}
			break
		}

		if err := repair.Refine(l); err != nil {
			failures++
			if failures >= opts.MaxRefineFailures {
				return nil, reasonRefineFailures + ": " + err.Error(), nil
			}
			// Merge errors come from its own refine pass; the next check
			// decides whether the rescue helped.
			_, _ = repair.Merge(l, opts.MergeThreshold)
		} else {
			failures = 0
			iterations++
		}
		if !a.unchanged(l, snapshot) {
			return nil, reasonSpecialsMoved, nil
		}
		g.emit(Event{Kind: EventRefined, Level: a.level, Attempt: a.number, Iteration: iterations, Lattice: l})
	}

	return &Floor{
		Level:      a.level,
		Strategy:   strategy,
		Lattice:    l,
		Entry:      a.entry,
		StairsDown: res.StairsDown,
		Attempts:   a.number,
		Iterations: iterations,
		Placed:     res.Placed,
	}, "", nil
}

// specials records every special tile and its cell.
func (a *floorAttempt) specials(l *lattice.Lattice) mapset.Set[specialCell] {
	set := mapset.New[specialCell]()
	t := a.gen.roles.Terrain
	l.Each(func(p lattice.Point, v lattice.TileValue) {
		if t.IsSpecial(v) {
			set.Put(specialCell{at: p, id: v})
		}
	})
	return set
}

// unchanged reports whether l still holds exactly the snapshot's specials.
func (a *floorAttempt) unchanged(l *lattice.Lattice, snapshot mapset.Set[specialCell]) bool {
	current := a.specials(l)
	if current.Size() != snapshot.Size() {
		return false
	}
	same := true
	snapshot.Each(func(c specialCell) {
		if !current.Has(c) {
			same = false
		}
	})
	return same
}
