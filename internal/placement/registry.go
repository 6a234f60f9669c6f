package placement

import (
	"sort"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// Registry counts, per dungeon, how often each capped tile has been placed
// on accepted floors. Attempts work on a Ledger and only a successful floor
// commits it, so a discarded attempt never consumes an instance.
type Registry struct {
	caps   map[lattice.TileValue]int
	counts map[lattice.TileValue]int
}

// NewRegistry reads the caps of every capped tile in cat.
func NewRegistry(cat *catalog.Catalog) *Registry {
	r := &Registry{
		caps:   make(map[lattice.TileValue]int),
		counts: make(map[lattice.TileValue]int),
	}
	for _, d := range cat.Tiles() {
		if d.Capped() {
			r.caps[d.ID] = d.MaxPerDungeon
		}
	}
	return r
}

// Count returns the committed instances of id.
func (r *Registry) Count(id lattice.TileValue) int {
	return r.counts[id]
}

// Cap returns the cap of id and whether it has one.
func (r *Registry) Cap(id lattice.TileValue) (int, bool) {
	c, ok := r.caps[id]
	return c, ok
}

// Counts returns a copy of the committed counts, for reporting.
func (r *Registry) Counts() map[lattice.TileValue]int {
	out := make(map[lattice.TileValue]int, len(r.counts))
	for id, n := range r.counts {
		out[id] = n
	}
	return out
}

// Capped returns the ids with a cap, in id order.
func (r *Registry) Capped() []lattice.TileValue {
	ids := make([]lattice.TileValue, 0, len(r.caps))
	for id := range r.caps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Begin opens a ledger for one generation attempt.
func (r *Registry) Begin() *Ledger {
	return &Ledger{registry: r, pending: make(map[lattice.TileValue]int)}
}

// Ledger holds the placements of one attempt until it is committed.
type Ledger struct {
	registry *Registry
	pending  map[lattice.TileValue]int
}

// Allows reports whether one more instance of id fits under its cap.
func (l *Ledger) Allows(id lattice.TileValue) bool {
	limit, capped := l.registry.caps[id]
	if !capped {
		return true
	}
	return l.registry.counts[id]+l.pending[id] < limit
}

// Record notes one placed instance of id. Uncapped ids are ignored.
func (l *Ledger) Record(id lattice.TileValue) {
	if _, capped := l.registry.caps[id]; capped {
		l.pending[id]++
	}
}

// Commit adds the pending counts to the registry. A ledger commits once.
func (l *Ledger) Commit() {
	for id, n := range l.pending {
		l.registry.counts[id] += n
	}
	l.pending = make(map[lattice.TileValue]int)
}
