package terrain

import (
	"math"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

// voronoiWindow is the side of the square sites are scattered in. The
// square is centred on start and shifted, not shrunk, to fit the lattice.
const voronoiWindow = 50

// siteWindow returns the half-open range [lo, hi) of one axis.
func siteWindow(start, n int) (int, int) {
	lo, hi := start-voronoiWindow/2, start+voronoiWindow/2
	if lo < 0 {
		hi -= lo
		lo = 0
	}
	if hi > n {
		lo = max(0, lo-(hi-n))
		hi = n
	}
	return lo, hi
}

// carveVoronoi scatters sites around start (start is always site 0),
// rasterizes the finite edges of their Voronoi diagram into PATH and finally
// joins start to the nearest edge.
func carveVoronoi(l *lattice.Lattice, start lattice.Point, sites int, t lattice.Terrain, rng *seed.Random) {
	minX, maxX := siteWindow(start.X, l.N())
	minY, maxY := siteWindow(start.Y, l.N())

	points := []vec{{X: float64(start.X), Y: float64(start.Y)}}
	seen := map[lattice.Point]bool{start: true}
	for i := 1; i < sites; i++ {
		p := lattice.Point{X: rng.Range(minX, maxX-1), Y: rng.Range(minY, maxY-1)}
		if seen[p] {
			continue
		}
		seen[p] = true
		points = append(points, vec{X: float64(p.X), Y: float64(p.Y)})
	}

	for _, r := range voronoiRidges(points) {
		a := lattice.Point{X: int(math.Round(r.a.X)), Y: int(math.Round(r.a.Y))}
		b := lattice.Point{X: int(math.Round(r.b.X)), Y: int(math.Round(r.b.Y))}
		if !l.InBounds(a) || !l.InBounds(b) {
			continue
		}
		for _, p := range lattice.Bresenham(a, b) {
			l.Set(p, t.Path)
		}
	}

	joinStart(l, start, t)
}

// joinStart carves start and, when it touches no corridor, walks an
// edge-connected line to the nearest open cell.
func joinStart(l *lattice.Lattice, start lattice.Point, t lattice.Terrain) {
	if l.At(start) == t.Empty {
		l.Set(start, t.Path)
	}
	mask, reached := l.Reach(start, t.IsOpen)
	if reached > 1 {
		return
	}

	best, found := lattice.Point{}, false
	bestDist := math.MaxInt
	l.Each(func(p lattice.Point, v lattice.TileValue) {
		if !t.IsOpen(v) || l.Visited(mask, p) {
			return
		}
		dx, dy := p.X-start.X, p.Y-start.Y
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist, found = p, d, true
		}
	})
	if !found {
		return
	}
	for _, p := range lattice.StepLine(start, best) {
		if l.At(p) == t.Empty {
			l.Set(p, t.Path)
		}
	}
}
