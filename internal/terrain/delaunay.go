package terrain

import (
	"math"

	"github.com/fogleman/delaunay"
)

type vec struct {
	X, Y float64
}

type ridge struct {
	a, b vec
}

// triangulate returns the Delaunay triangulation of pts, or nil when there
// is none (fewer than three points, or all of them collinear).
func triangulate(pts []vec) *delaunay.Triangulation {
	if len(pts) < 3 {
		return nil
	}
	in := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		in[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tri, err := delaunay.Triangulate(in)
	if err != nil || len(tri.Triangles) == 0 {
		return nil
	}
	return tri
}

// circumcenter reports false for a degenerate triangle.
func circumcenter(a, b, c delaunay.Point) (vec, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < 1e-12 {
		return vec{}, false
	}
	a2 := a.X*a.X + a.Y*a.Y
	b2 := b.X*b.X + b.Y*b.Y
	c2 := c.X*c.X + c.Y*c.Y
	return vec{
		X: (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d,
		Y: (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d,
	}, true
}

// voronoiRidges returns the finite edges of the Voronoi diagram of pts: one
// per Delaunay edge shared by two triangles, joining their circumcentres.
// Hull edges have an unbounded ridge and are left out. The order only
// depends on the input order.
func voronoiRidges(pts []vec) []ridge {
	tri := triangulate(pts)
	if tri == nil {
		return nil
	}

	n := len(tri.Triangles) / 3
	centers := make([]vec, n)
	valid := make([]bool, n)
	for t := 0; t < n; t++ {
		centers[t], valid[t] = circumcenter(
			tri.Points[tri.Triangles[3*t]],
			tri.Points[tri.Triangles[3*t+1]],
			tri.Points[tri.Triangles[3*t+2]],
		)
	}

	var out []ridge
	for e, opp := range tri.Halfedges {
		// Hull halfedges have no twin; every shared edge is seen twice.
		if opp < e {
			continue
		}
		ta, tb := e/3, opp/3
		if !valid[ta] || !valid[tb] {
			continue
		}
		out = append(out, ridge{a: centers[ta], b: centers[tb]})
	}
	return out
}
