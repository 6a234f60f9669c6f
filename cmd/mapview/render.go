package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// Fixed glyphs for the reserved ids.
const (
	glyphEmpty  = '#'
	glyphPath   = '.'
	glyphHidden = ','
	glyphCross  = '+'
	glyphEntry  = '@'
	glyphDown   = '>'
	glyphUp     = '<'
	glyphExtra  = '?'
)

// specialGlyphs are handed out to placed tiles in scan order.
const specialGlyphs = "abcdfghijklmnopqrstuvwxyzABCDFGHIJKLMNOPQRSTUVWXYZ0123456789"

// legend maps every id on one floor to a glyph.
type legend struct {
	glyphs map[lattice.TileValue]byte
	order  []lattice.TileValue
}

func newLegend(l *lattice.Lattice, cat *catalog.Catalog) *legend {
	roles := cat.Roles()
	lg := &legend{glyphs: map[lattice.TileValue]byte{
		roles.Empty:      glyphEmpty,
		roles.Path:       glyphPath,
		roles.Hidden:     glyphHidden,
		roles.Cross:      glyphCross,
		roles.Entry:      glyphEntry,
		roles.StairsDown: glyphDown,
		roles.StairsUp:   glyphUp,
	}}

	next := 0
	seen := make(map[lattice.TileValue]bool)
	l.Each(func(_ lattice.Point, v lattice.TileValue) {
		if seen[v] {
			return
		}
		seen[v] = true
		lg.order = append(lg.order, v)
		if _, ok := lg.glyphs[v]; ok {
			return
		}
		if next < len(specialGlyphs) {
			lg.glyphs[v] = specialGlyphs[next]
			next++
		} else {
			lg.glyphs[v] = glyphExtra
		}
	})
	sort.Slice(lg.order, func(i, j int) bool { return lg.order[i] < lg.order[j] })
	return lg
}

func (lg *legend) glyph(v lattice.TileValue) byte {
	if g, ok := lg.glyphs[v]; ok {
		return g
	}
	return glyphExtra
}

// renderASCII draws the floor one row per y, optionally followed by the
// legend of the ids it contains.
func renderASCII(l *lattice.Lattice, cat *catalog.Catalog, withLegend bool) string {
	lg := newLegend(l, cat)
	var b strings.Builder
	b.WriteString(l.Debug(lg.glyph))
	if withLegend {
		b.WriteString("\nLegend:\n")
		for _, v := range lg.order {
			fmt.Fprintf(&b, "  %c  %s  %-28s %d\n", lg.glyph(v), v, cat.Name(v),
				l.Count(func(c lattice.TileValue) bool { return c == v }))
		}
	}
	return b.String()
}
