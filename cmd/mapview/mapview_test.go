package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// testFloor is a 100x100 floor with a corridor on row 50, the entry, the
// stairs and one placed tile.
func testFloor(t *testing.T) (*lattice.Lattice, *catalog.Catalog, lattice.TileValue) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default error: %v", err)
	}
	r := cat.Roles()

	var special lattice.TileValue
	for _, d := range cat.Tiles() {
		if r.IsSpecial(d.ID) && d.ID != r.Entry && d.ID != r.StairsDown && d.ID != r.StairsUp {
			special = d.ID
			break
		}
	}
	if special == 0 {
		t.Fatal("catalog has no placeable tile")
	}

	l := lattice.New(lattice.Size, r.Empty)
	for x := 0; x < 10; x++ {
		l.Set(lattice.Point{X: x, Y: 1}, r.Path)
	}
	l.Set(lattice.Point{X: 0, Y: 1}, r.Entry)
	l.Set(lattice.Point{X: 9, Y: 1}, r.StairsDown)
	l.Set(lattice.Point{X: 4, Y: 2}, r.Hidden)
	l.Set(lattice.Point{X: 5, Y: 1}, special)
	return l, cat, special
}

func TestRenderASCII(t *testing.T) {
	l, cat, special := testFloor(t)

	out := renderASCII(l, cat, false)
	rows := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(rows) != lattice.Size {
		t.Fatalf("got %d rows, want %d", len(rows), lattice.Size)
	}
	if rows[0] != strings.Repeat("#", lattice.Size) {
		t.Errorf("row 0 = %q", rows[0][:12])
	}
	if got := rows[1][:11]; got != "@....a...>#" {
		t.Errorf("row 1 starts %q", got)
	}
	if rows[2][4] != ',' {
		t.Errorf("hidden cell rendered as %q", rows[2][4])
	}

	withLegend := renderASCII(l, cat, true)
	if !strings.Contains(withLegend, "Legend:") {
		t.Fatal("legend missing")
	}
	if !strings.Contains(withLegend, cat.Name(special)) {
		t.Errorf("legend does not name %s", special)
	}
}

func TestLegendOverflow(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	l := lattice.New(lattice.Size, cat.Roles().Empty)
	// Unknown ids past the glyph alphabet share the fallback glyph.
	for i := 0; i < len(specialGlyphs)+3; i++ {
		l.Set(lattice.Point{X: i % lattice.Size, Y: i / lattice.Size}, lattice.TileValue(0xF00000+i))
	}
	lg := newLegend(l, cat)
	if g := lg.glyph(0xF00000); g != 'a' {
		t.Errorf("first special glyph = %q, want 'a'", g)
	}
	if g := lg.glyph(lattice.TileValue(0xF00000 + len(specialGlyphs))); g != glyphExtra {
		t.Errorf("overflow glyph = %q, want %q", g, glyphExtra)
	}
}

func TestReadBin(t *testing.T) {
	l, cat, _ := testFloor(t)
	path := filepath.Join(t.TempDir(), export.BinName(0))
	data, err := export.MarshalBin(l, cat)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := readBin(path)
	if err != nil {
		t.Fatalf("readBin error: %v", err)
	}
	if !got.Equal(l) {
		t.Error("readBin changed the floor")
	}
	if _, err := readBin(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	ss := tcell.NewSimulationScreen("UTF-8")
	if err := ss.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	ss.SetSize(40, 12)
	t.Cleanup(ss.Fini)
	return ss
}

func TestViewerDrawAndScroll(t *testing.T) {
	l, cat, _ := testFloor(t)
	ss := newSimScreen(t)
	v := newViewer(ss, l, cat, "Map_m0.bin")

	v.draw()
	if r, _, _, _ := ss.GetContent(0, 1); r != '@' {
		t.Errorf("cell (0,1) = %q, want '@'", r)
	}
	if r, _, style, _ := ss.GetContent(9, 1); r != '>' {
		t.Errorf("cell (9,1) = %q, want '>'", r)
	} else {
		c, _ := cat.Color(cat.Roles().StairsDown)
		_, bg, _ := style.Decompose()
		if bg != tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)) {
			t.Errorf("stairs background = %v, want %s", bg, c)
		}
	}
	if r, _, _, _ := ss.GetContent(0, 11); r != 'M' {
		t.Errorf("status line starts with %q", r)
	}

	if v.handle(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone)) {
		t.Fatal("arrow key should not quit")
	}
	v.draw()
	if r, _, _, _ := ss.GetContent(8, 1); r != '>' {
		t.Errorf("after scrolling right cell (8,1) = %q, want '>'", r)
	}

	v.scroll(-50, -50)
	if v.offX != 0 || v.offY != 0 {
		t.Errorf("scroll clamped to (%d,%d), want (0,0)", v.offX, v.offY)
	}
	v.scroll(500, 500)
	if v.offX != lattice.Size-1 || v.offY != lattice.Size-1 {
		t.Errorf("scroll clamped to (%d,%d), want the last cell", v.offX, v.offY)
	}

	if !v.handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q should quit")
	}
	if !v.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("escape should quit")
	}
}
