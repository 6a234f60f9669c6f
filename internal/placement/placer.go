// Package placement writes the special tiles of one floor onto a carved
// lattice: the entry, wanderer spawns, the stairs down and every tagged
// catalog family, in a fixed order. Each tile is connected to the corridor
// network as it is placed.
package placement

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/refine"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// maxTries bounds the anchors tried for one tile instance.
const maxTries = 32

var (
	// ErrEntryUnreachable means the entry tile could not be joined to a path.
	ErrEntryUnreachable = errors.New("placement: entry has no route to a path")
	// ErrNoStairsDown means no cell accepted the stairs down.
	ErrNoStairsDown = errors.New("placement: no cell accepts the stairs down")
)

// Band is an inclusive range of levels.
type Band struct {
	Min int
	Max int
}

// Contains reports whether level lies in the band. A zero band is empty.
func (b Band) Contains(level int) bool {
	if b.Min == 0 && b.Max == 0 {
		return false
	}
	return level >= b.Min && level <= b.Max
}

// Options tune placement.
type Options struct {
	// CheatMode moves every treasure, movement and battle tile to floor 0.
	CheatMode bool
	// CrossBand lists the floors that receive cross cells.
	CrossBand Band
	// CrossCount is the number of cross cells per band floor.
	CrossCount int
	// MergeThreshold is the group count a band floor is merged down to after
	// its crosses are written.
	MergeThreshold int
}

// Placed records one written tile.
type Placed struct {
	ID     lattice.TileValue
	At     lattice.Point
	Family string
}

// Result describes what Place wrote.
type Result struct {
	Entry      lattice.Point
	StairsDown lattice.Point
	Placed     []Placed
	Crosses    []lattice.Point
	// OverCap counts instances left out because their dungeon cap is spent.
	OverCap int
	// Missing lists the tiles that found no accepting cell, once per instance.
	Missing []lattice.TileValue
}

// Router joins freshly written cells to the corridor network.
// *refine.Refiner is the production implementation.
type Router interface {
	CompletePath(l *lattice.Lattice, anchor lattice.Point, target refine.Target) error
	Merge(l *lattice.Lattice, threshold int) (int, error)
}

// Placer places the special tiles of one floor.
type Placer struct {
	catalog   *catalog.Catalog
	wanderers catalog.WandererTable
	roles     catalog.Roles
	refiner   Router
	rng       *seed.Random
	opts      Options
}

// New returns a Placer. The router and rng must belong to the floor being
// built so placement stays on the floor's random stream.
func New(cat *catalog.Catalog, wanderers catalog.WandererTable, refiner Router, rng *seed.Random, opts Options) *Placer {
	return &Placer{
		catalog:   cat,
		wanderers: wanderers,
		roles:     cat.Roles(),
		refiner:   refiner,
		rng:       rng,
		opts:      opts,
	}
}

// Place writes every special tile for level onto l. entry is the start cell
// the terrain was carved from. Capped tiles are counted on ledger; the
// caller commits it only when the floor is accepted.
func (p *Placer) Place(l *lattice.Lattice, level int, entry lattice.Point, ledger *Ledger) (*Result, error) {
	res := &Result{Entry: entry}

	entryID := p.roles.Entry
	if level > 0 {
		entryID = p.roles.StairsUp
	}
	prev := l.At(entry)
	l.Set(entry, entryID)
	if err := p.refiner.CompletePath(l, entry, refine.TargetPath); err != nil {
		l.Set(entry, prev)
		return nil, fmt.Errorf("%w: %v", ErrEntryUnreachable, err)
	}
	res.Placed = append(res.Placed, Placed{ID: entryID, At: entry, Family: "entry"})

	p.placeWanderers(l, level)

	at, ok := p.placeStairsDown(l, entry)
	if !ok {
		return nil, ErrNoStairsDown
	}
	res.StairsDown = at
	res.Placed = append(res.Placed, Placed{ID: p.roles.StairsDown, At: at, Family: "stairs down"})

	done := make(map[lattice.TileValue]bool)
	for _, f := range families {
		for _, d := range p.catalog.Tagged(f.tag) {
			if done[d.ID] {
				continue
			}
			done[d.ID] = true
			p.placeDescriptor(l, level, f, d, ledger, res)
		}
	}

	if p.opts.CrossBand.Contains(level) {
		res.Crosses = p.placeCrosses(l)
		// Left unmerged groups are picked up by the connectivity loop.
		_, _ = p.refiner.Merge(l, p.opts.MergeThreshold)
	}
	return res, nil
}

// placeWanderers turns each spawn cell into PATH, hidden-joined to the
// network. Cells held by a special tile are left alone.
func (p *Placer) placeWanderers(l *lattice.Lattice, level int) {
	for _, at := range p.wanderers.At(level) {
		if !l.InBounds(at) {
			continue
		}
		prev := l.At(at)
		if p.roles.IsSpecial(prev) {
			continue
		}
		if prev == p.roles.Path {
			continue
		}
		l.Set(at, p.roles.Empty)
		if err := p.refiner.CompletePath(l, at, refine.TargetHidden); err != nil {
			l.Set(at, prev)
			continue
		}
		l.Set(at, p.roles.Path)
	}
}

// placeStairsDown puts the stairs down near the open cell farthest from the
// entry, walking inward when the far cells reject it.
func (p *Placer) placeStairsDown(l *lattice.Lattice, entry lattice.Point) (lattice.Point, bool) {
	cells := l.Collect(p.roles.IsOpen)
	sort.SliceStable(cells, func(i, j int) bool {
		return cells[i].DistanceSq(entry) > cells[j].DistanceSq(entry)
	})
	for i := 0; i < len(cells) && i < maxTries; i++ {
		at := p.jitter(l, cells[i], largeJitter)
		if at == entry {
			continue
		}
		if p.tryCell(l, at, p.roles.StairsDown, refine.TargetPath) {
			return at, true
		}
	}
	// Fall back to the exact far cells before giving up.
	for i := 0; i < len(cells) && i < maxTries; i++ {
		if p.tryCell(l, cells[i], p.roles.StairsDown, refine.TargetPath) {
			return cells[i], true
		}
	}
	return lattice.Point{}, false
}

func (p *Placer) placeDescriptor(l *lattice.Lattice, level int, f family, d *catalog.TileDescriptor, ledger *Ledger, res *Result) {
	pins := d.PinnedAt(level)
	random := d.OnLevel(level)
	if f.cheat && p.opts.CheatMode {
		pins = nil
		random = level == 0
	}

	place := func(at lattice.Point, ok bool) {
		if !ok {
			res.Missing = append(res.Missing, d.ID)
			return
		}
		ledger.Record(d.ID)
		res.Placed = append(res.Placed, Placed{ID: d.ID, At: at, Family: f.name})
	}

	for _, pin := range pins {
		if !ledger.Allows(d.ID) {
			res.OverCap++
			continue
		}
		place(p.placePinned(l, d.ID, pin, f))
	}
	if random {
		if !ledger.Allows(d.ID) {
			res.OverCap++
			return
		}
		place(p.placeRandom(l, d.ID, f))
	}
}

// placePinned tries the pinned cell first, then jittered cells around it.
func (p *Placer) placePinned(l *lattice.Lattice, id lattice.TileValue, pin lattice.Point, f family) (lattice.Point, bool) {
	pin = l.Clamp(pin)
	if p.tryCell(l, pin, id, f.target) {
		return pin, true
	}
	for i := 0; i < maxTries; i++ {
		at := p.jitter(l, pin, f.jitter)
		if p.tryCell(l, at, id, f.target) {
			return at, true
		}
	}
	return lattice.Point{}, false
}

// placeRandom anchors on a random open cell and jitters around it.
func (p *Placer) placeRandom(l *lattice.Lattice, id lattice.TileValue, f family) (lattice.Point, bool) {
	open := l.Collect(p.roles.IsOpen)
	if len(open) == 0 {
		return lattice.Point{}, false
	}
	for i := 0; i < maxTries; i++ {
		at := p.jitter(l, seed.Choice(p.rng, open), f.jitter)
		if p.tryCell(l, at, id, f.target) {
			return at, true
		}
	}
	return lattice.Point{}, false
}

// tryCell writes id at cell and joins it to the network. The write is
// reverted when the cell is taken or no route exists.
func (p *Placer) tryCell(l *lattice.Lattice, at lattice.Point, id lattice.TileValue, target refine.Target) bool {
	prev := l.At(at)
	if prev != p.roles.Empty && !p.roles.IsOpen(prev) {
		return false
	}
	l.Set(at, id)
	if err := p.refiner.CompletePath(l, at, target); err != nil {
		l.Set(at, prev)
		return false
	}
	return true
}

func (p *Placer) jitter(l *lattice.Lattice, anchor lattice.Point, radius int) lattice.Point {
	if radius <= 0 {
		return anchor
	}
	return l.Clamp(anchor.Add(lattice.Point{
		X: p.rng.Range(-radius, radius),
		Y: p.rng.Range(-radius, radius),
	}))
}

// placeCrosses writes CROSS into EMPTY cells that sit in a one-cell gap
// between two corridors, on the x or the y axis.
func (p *Placer) placeCrosses(l *lattice.Lattice) []lattice.Point {
	if p.opts.CrossCount <= 0 {
		return nil
	}
	var gaps []lattice.Point
	n := l.N()
	for x := 1; x < n-1; x++ {
		for y := 1; y < n-1; y++ {
			if l.At(lattice.Point{X: x, Y: y}) != p.roles.Empty {
				continue
			}
			horizontal := p.roles.Counted(l.At(lattice.Point{X: x - 1, Y: y})) &&
				p.roles.Counted(l.At(lattice.Point{X: x + 1, Y: y}))
			vertical := p.roles.Counted(l.At(lattice.Point{X: x, Y: y - 1})) &&
				p.roles.Counted(l.At(lattice.Point{X: x, Y: y + 1}))
			if horizontal != vertical {
				gaps = append(gaps, lattice.Point{X: x, Y: y})
			}
		}
	}
	seed.ShuffleSlice(p.rng, gaps)
	if len(gaps) > p.opts.CrossCount {
		gaps = gaps[:p.opts.CrossCount]
	}
	for _, at := range gaps {
		l.Set(at, p.roles.Cross)
	}
	return gaps
}
