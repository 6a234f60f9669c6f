// Package generator drives dungeon generation: for every floor it carves
// terrain, places the special tiles, verifies reachability and repairs or
// regenerates until the floor is accepted.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/logger"
	"github.com/lawnchairsociety/dungeongen/internal/placement"
	"github.com/lawnchairsociety/dungeongen/internal/refine"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
	"github.com/lawnchairsociety/dungeongen/internal/telemetry"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// Repairer is everything the generator asks of the connectivity repair
// layer. *refine.Refiner implements it.
type Repairer interface {
	placement.Router
	Refine(l *lattice.Lattice) error
	MergeAll(l *lattice.Lattice, rounds int) (bool, error)
}

// RepairerFunc builds the repairer for one floor, drawing from that floor's
// random stream.
type RepairerFunc func(t lattice.Terrain, rng *seed.Random, target refine.Target) Repairer

func defaultRepairer(t lattice.Terrain, rng *seed.Random, target refine.Target) Repairer {
	return refine.New(t, rng, target)
}

// Floor is one accepted level.
type Floor struct {
	Level      int
	Seed       string
	Strategy   terrain.Strategy
	Lattice    *lattice.Lattice
	Entry      lattice.Point
	StairsDown lattice.Point
	Attempts   int
	Iterations int
	Placed     []placement.Placed
}

// Dungeon is the ordered result of a run.
type Dungeon struct {
	Options Options
	// Catalog holds every id the floors use.
	Catalog *catalog.Catalog
	Floors  []*Floor
	// Counts holds the committed instances of every capped tile.
	Counts map[lattice.TileValue]int
}

// Option customises a Generator.
type Option func(*Generator)

// WithRepairer replaces the connectivity repair layer.
func WithRepairer(f RepairerFunc) Option {
	return func(g *Generator) { g.repairer = f }
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observer = o }
}

// WithTracer replaces the tracer spans are recorded on.
func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) { g.tracer = t }
}

// Generator produces dungeons from one catalog. A Generator is not safe for
// concurrent use; build one per run.
type Generator struct {
	catalog   *catalog.Catalog
	wanderers catalog.WandererTable
	roles     catalog.Roles
	opts      Options
	repairer  RepairerFunc
	observer  Observer
	tracer    trace.Tracer
	registry  *placement.Registry
	log       *slog.Logger
}

// New validates opts and returns a Generator. An empty seed is replaced by a
// random one; Options reports the seed actually used.
func New(cat *catalog.Catalog, wanderers catalog.WandererTable, opts Options, options ...Option) (*Generator, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	g := &Generator{
		catalog:   cat,
		wanderers: wanderers,
		roles:     cat.Roles(),
		opts:      opts,
		repairer:  defaultRepairer,
		tracer:    telemetry.Tracer("generator"),
		registry:  placement.NewRegistry(cat),
	}
	for _, o := range options {
		o(g)
	}
	g.log = logger.With("component", "generator", "seed", opts.Seed, "strategy", string(opts.Strategy))
	return g, nil
}

// Options returns the normalized options of the run.
func (g *Generator) Options() Options {
	return g.opts
}

// Registry returns the dungeon's placement registry.
func (g *Generator) Registry() *placement.Registry {
	return g.registry
}

// Generate builds every requested floor in level order. Each floor starts
// on its predecessor's stairs down; a floor whose predecessor was not
// generated starts at DefaultEntry.
func (g *Generator) Generate(ctx context.Context) (*Dungeon, error) {
	ctx, span := g.tracer.Start(ctx, "dungeon.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("seed", g.opts.Seed),
		attribute.String("strategy", string(g.opts.Strategy)),
		attribute.Int("param", g.opts.Param),
		attribute.Bool("cheat_mode", g.opts.CheatMode),
	)

	levels := g.levels()
	d := &Dungeon{Options: g.opts, Catalog: g.catalog, Floors: make([]*Floor, 0, len(levels))}
	var prev *Floor
	for n, level := range levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		floorSeed, err := seed.Floor(g.opts.Seed, n)
		if err != nil {
			return nil, err
		}
		entry := DefaultEntry
		if prev != nil && prev.Level == level-1 {
			if entry, err = g.nextEntry(prev); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		}
		f, err := g.GenerateFloor(ctx, level, floorSeed, entry)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		d.Floors = append(d.Floors, f)
		prev = f
	}
	d.Counts = g.registry.Counts()

	span.SetAttributes(attribute.Int("floors", len(d.Floors)))
	g.log.Info("Dungeon generated", "floors", len(d.Floors))
	return d, nil
}

func (g *Generator) levels() []int {
	if len(g.opts.Levels) == 0 {
		out := make([]int, g.opts.Floors)
		for i := range out {
			out[i] = i
		}
		return out
	}
	seen := make(map[int]bool, len(g.opts.Levels))
	out := make([]int, 0, len(g.opts.Levels))
	for _, l := range g.opts.Levels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out
}

// nextEntry scans an accepted floor for its stairs down.
func (g *Generator) nextEntry(f *Floor) (lattice.Point, error) {
	p, ok := f.Lattice.Find(g.roles.StairsDown)
	if !ok {
		return lattice.Point{}, &FloorError{Level: f.Level, Attempts: f.Attempts, Err: ErrMissingStairsDown}
	}
	return p, nil
}

// GenerateFloor builds one floor from floorSeed starting at entry, retrying
// fresh attempts until one is accepted or MaxAttempts is reached. Capped
// placements are committed to the registry only for the accepted attempt.
func (g *Generator) GenerateFloor(ctx context.Context, level int, floorSeed string, entry lattice.Point) (*Floor, error) {
	ctx, span := g.tracer.Start(ctx, "floor.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("level", level))

	rng := seed.New(floorSeed)
	log := g.log.With("floor", level)
	g.emit(Event{Kind: EventFloorStarted, Level: level})

	for n := 1; n <= g.opts.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ledger := g.registry.Begin()
		a := &floorAttempt{
			gen:    g,
			level:  level,
			number: n,
			entry:  entry,
			rng:    rng,
			ledger: ledger,
		}
		f, reason, err := a.run()
		if err != nil {
			// Configuration errors are fatal.
			return nil, err
		}
		if f == nil {
			log.Debug("Attempt rejected", "attempt", n, "reason", reason)
			g.emit(Event{Kind: EventAttemptRejected, Level: level, Attempt: n, Reason: reason, Lattice: a.lattice})
			continue
		}

		ledger.Commit()
		f.Seed = floorSeed
		span.SetAttributes(
			attribute.Int("attempts", f.Attempts),
			attribute.Int("iterations", f.Iterations),
			attribute.String("terrain", string(f.Strategy)),
		)
		log.Debug("Floor accepted", "attempts", f.Attempts, "iterations", f.Iterations, "terrain", string(f.Strategy))
		g.emit(Event{Kind: EventFloorAccepted, Level: level, Attempt: n, Iteration: f.Iterations, Lattice: f.Lattice})
		return f, nil
	}

	err := &FloorError{Level: level, Attempts: g.opts.MaxAttempts, Err: ErrGenerationFailed}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error("Floor generation failed", "attempts", g.opts.MaxAttempts)
	return nil, err
}

func (g *Generator) emit(e Event) {
	if g.observer != nil {
		g.observer(e)
	}
}

// String summarises a dungeon for logs.
func (d *Dungeon) String() string {
	return fmt.Sprintf("%s: %d floors", d.Options.RunKey(), len(d.Floors))
}
