package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// viewer scrolls a floor across a terminal, each cell painted in its
// catalog colour.
type viewer struct {
	screen tcell.Screen
	l      *lattice.Lattice
	cat    *catalog.Catalog
	legend *legend
	title  string
	offX   int
	offY   int
}

func newViewer(screen tcell.Screen, l *lattice.Lattice, cat *catalog.Catalog, title string) *viewer {
	return &viewer{screen: screen, l: l, cat: cat, legend: newLegend(l, cat), title: title}
}

// style paints a cell in its catalog colour with a contrasting glyph.
func (v *viewer) style(id lattice.TileValue) tcell.Style {
	c, ok := v.cat.Color(id)
	if !ok {
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
	fg := tcell.ColorWhite
	if int(c.R)*299+int(c.G)*587+int(c.B)*114 > 128000 {
		fg = tcell.ColorBlack
	}
	return tcell.StyleDefault.
		Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).
		Foreground(fg)
}

// draw renders the visible window; the bottom row is a status line.
func (v *viewer) draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	rows := h - 1
	for sy := 0; sy < rows; sy++ {
		for sx := 0; sx < w; sx++ {
			p := lattice.Point{X: v.offX + sx, Y: v.offY + sy}
			id, ok := v.l.Get(p)
			if !ok {
				continue
			}
			v.screen.SetContent(sx, sy, rune(v.legend.glyph(id)), nil, v.style(id))
		}
	}

	status := v.title + "  arrows/hjkl scroll  q quit"
	for i, r := range status {
		if i >= w {
			break
		}
		v.screen.SetContent(i, h-1, r, nil, tcell.StyleDefault.Reverse(true))
	}
	v.screen.Show()
}

// scroll moves the window, keeping at least one cell of the floor visible.
func (v *viewer) scroll(dx, dy int) {
	n := v.l.N()
	v.offX = min(max(v.offX+dx, 0), n-1)
	v.offY = min(max(v.offY+dy, 0), n-1)
}

// handle applies one event and reports whether the viewer should exit.
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			v.scroll(0, -1)
		case tcell.KeyDown:
			v.scroll(0, 1)
		case tcell.KeyLeft:
			v.scroll(-1, 0)
		case tcell.KeyRight:
			v.scroll(1, 0)
		case tcell.KeyPgUp:
			v.scroll(0, -10)
		case tcell.KeyPgDn:
			v.scroll(0, 10)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return true
			case 'k':
				v.scroll(0, -1)
			case 'j':
				v.scroll(0, 1)
			case 'h':
				v.scroll(-1, 0)
			case 'l':
				v.scroll(1, 0)
			}
		}
	}
	return false
}

// run draws and handles events until the user quits.
func (v *viewer) run() {
	v.draw()
	for {
		if v.handle(v.screen.PollEvent()) {
			return
		}
		v.draw()
	}
}
