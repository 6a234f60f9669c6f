// Package lattice holds the square tile grid a floor is built on, together with
// the grid algorithms every generation stage shares: flood fill, component
// labelling, line rasterization and path completion.
package lattice

import (
	"fmt"
	"strings"
)

// Size is the side of every floor the game can load.
const Size = 100

// TileValue is a catalog tile id. Ids are 24-bit so they fit the 3-byte
// binary level format.
type TileValue uint32

// MaxTileValue is the largest id the binary format can carry.
const MaxTileValue TileValue = 0xFFFFFF

// String renders the id the way the catalog writes it.
func (v TileValue) String() string {
	return fmt.Sprintf("%06X", uint32(v))
}

// Point is a cell coordinate. X is the first (column) index and Y the second.
type Point struct {
	X, Y int
}

// Add returns p offset by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// DistanceSq is the squared euclidean distance between p and q.
func (p Point) DistanceSq(q Point) int {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Terrain holds the four reserved terrain ids. Everything else on a lattice
// is a special tile.
type Terrain struct {
	Empty  TileValue
	Path   TileValue
	Hidden TileValue
	Cross  TileValue
}

// IsTerrain reports whether v is one of the reserved terrain ids.
func (t Terrain) IsTerrain(v TileValue) bool {
	return v == t.Empty || v == t.Path || v == t.Hidden || v == t.Cross
}

// IsSpecial reports whether v is a placed tile rather than terrain.
func (t Terrain) IsSpecial(v TileValue) bool {
	return !t.IsTerrain(v)
}

// Counted reports whether v takes part in connectivity: neither EMPTY nor CROSS.
func (t Terrain) Counted(v TileValue) bool {
	return v != t.Empty && v != t.Cross
}

// IsOpen reports whether v is plain corridor (PATH or HIDDEN).
func (t Terrain) IsOpen(v TileValue) bool {
	return v == t.Path || v == t.Hidden
}

// Lattice is an N x N grid of tile values addressed as [x][y]. It is not safe
// for concurrent mutation; each generation attempt owns its own lattice.
type Lattice struct {
	n     int
	cells []TileValue
}

// New returns an n x n lattice with every cell set to fill.
func New(n int, fill TileValue) *Lattice {
	if n <= 0 {
		panic(fmt.Sprintf("lattice: invalid size %d", n))
	}
	cells := make([]TileValue, n*n)
	if fill != 0 {
		for i := range cells {
			cells[i] = fill
		}
	}
	return &Lattice{n: n, cells: cells}
}

// N returns the side length.
func (l *Lattice) N() int {
	return l.n
}

// InBounds reports whether p lies inside the lattice.
func (l *Lattice) InBounds(p Point) bool {
	return p.X >= 0 && p.X < l.n && p.Y >= 0 && p.Y < l.n
}

func (l *Lattice) index(p Point) int {
	return p.X*l.n + p.Y
}

// At returns the value at p. It panics when p is out of bounds; use Get for
// lookups that may fall off the edge.
func (l *Lattice) At(p Point) TileValue {
	if !l.InBounds(p) {
		panic(fmt.Sprintf("lattice: read outside %dx%d at %v", l.n, l.n, p))
	}
	return l.cells[l.index(p)]
}

// Get returns the value at p and false when p is out of bounds.
func (l *Lattice) Get(p Point) (TileValue, bool) {
	if !l.InBounds(p) {
		return 0, false
	}
	return l.cells[l.index(p)], true
}

// Set writes v at p. Writing outside the lattice is a programming error.
func (l *Lattice) Set(p Point, v TileValue) {
	if !l.InBounds(p) {
		panic(fmt.Sprintf("lattice: write outside %dx%d at %v", l.n, l.n, p))
	}
	l.cells[l.index(p)] = v
}

// Clamp moves p onto the nearest in-bounds cell.
func (l *Lattice) Clamp(p Point) Point {
	return Point{X: clamp(p.X, 0, l.n-1), Y: clamp(p.Y, 0, l.n-1)}
}

// Clone returns an independent copy.
func (l *Lattice) Clone() *Lattice {
	cells := make([]TileValue, len(l.cells))
	copy(cells, l.cells)
	return &Lattice{n: l.n, cells: cells}
}

// CopyFrom overwrites l with the contents of src, which must have the same size.
func (l *Lattice) CopyFrom(src *Lattice) {
	if src.n != l.n {
		panic(fmt.Sprintf("lattice: copy %dx%d into %dx%d", src.n, src.n, l.n, l.n))
	}
	copy(l.cells, src.cells)
}

// Equal reports whether both lattices have the same size and contents.
func (l *Lattice) Equal(o *Lattice) bool {
	if o == nil || l.n != o.n {
		return false
	}
	for i, v := range l.cells {
		if o.cells[i] != v {
			return false
		}
	}
	return true
}

// Each calls fn for every cell in scan order: x outer, y inner.
func (l *Lattice) Each(fn func(p Point, v TileValue)) {
	for x := 0; x < l.n; x++ {
		for y := 0; y < l.n; y++ {
			fn(Point{X: x, Y: y}, l.cells[x*l.n+y])
		}
	}
}

// Collect returns, in scan order, every cell whose value satisfies keep.
func (l *Lattice) Collect(keep func(TileValue) bool) []Point {
	var out []Point
	l.Each(func(p Point, v TileValue) {
		if keep(v) {
			out = append(out, p)
		}
	})
	return out
}

// Count returns how many cells satisfy keep.
func (l *Lattice) Count(keep func(TileValue) bool) int {
	n := 0
	for _, v := range l.cells {
		if keep(v) {
			n++
		}
	}
	return n
}

// Find returns the first cell in scan order holding one of values.
func (l *Lattice) Find(values ...TileValue) (Point, bool) {
	for x := 0; x < l.n; x++ {
		for y := 0; y < l.n; y++ {
			v := l.cells[x*l.n+y]
			for _, want := range values {
				if v == want {
					return Point{X: x, Y: y}, true
				}
			}
		}
	}
	return Point{}, false
}

// Debug renders the lattice as text, one row per y, using glyph for each value.
func (l *Lattice) Debug(glyph func(TileValue) byte) string {
	var b strings.Builder
	b.Grow(l.n * (l.n + 1))
	for y := 0; y < l.n; y++ {
		for x := 0; x < l.n; x++ {
			b.WriteByte(glyph(l.cells[x*l.n+y]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
