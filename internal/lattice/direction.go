package lattice

// Direction is one of the four axis directions.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Offset is the unit step for d. North decreases Y.
func (d Direction) Offset() Point {
	switch d {
	case North:
		return Point{X: 0, Y: -1}
	case East:
		return Point{X: 1, Y: 0}
	case South:
		return Point{X: 0, Y: 1}
	case West:
		return Point{X: -1, Y: 0}
	default:
		return Point{}
	}
}

// AllDirections returns all four axis directions.
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// axisOffsets are the four 4-neighbourhood steps.
var axisOffsets = [4]Point{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// AxisNeighbors returns the in-bounds 4-neighbours of p.
func (l *Lattice) AxisNeighbors(p Point) []Point {
	out := make([]Point, 0, 4)
	for _, d := range axisOffsets {
		if q := p.Add(d); l.InBounds(q) {
			out = append(out, q)
		}
	}
	return out
}
