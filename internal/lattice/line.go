package lattice

// Bresenham returns the cells of the line from a to b, both endpoints included.
func Bresenham(a, b Point) []Point {
	dx, dy := abs(b.X-a.X), abs(b.Y-a.Y)
	stepX, stepY := 1, 1
	if b.X < a.X {
		stepX = -1
	}
	if b.Y < a.Y {
		stepY = -1
	}

	out := make([]Point, 0, max(dx, dy)+1)
	err := dx - dy
	x, y := a.X, a.Y
	for {
		out = append(out, Point{X: x, Y: y})
		if x == b.X && y == b.Y {
			return out
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += stepX
		}
		if e2 < dx {
			err += dx
			y += stepY
		}
	}
}

// StepLine walks from a to b moving x and y toward the target independently,
// one axis at a time, so consecutive cells always share an edge.
func StepLine(a, b Point) []Point {
	out := []Point{a}
	p := a
	for p != b {
		if p.X != b.X {
			p.X += sign(b.X - p.X)
			out = append(out, p)
		}
		if p.Y != b.Y {
			p.Y += sign(b.Y - p.Y)
			out = append(out, p)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
