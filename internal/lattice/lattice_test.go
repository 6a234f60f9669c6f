package lattice

import (
	"errors"
	"testing"
)

var testTerrain = Terrain{Empty: 0, Path: 1, Hidden: 2, Cross: 3}

const special TileValue = 0x10

// draw builds a lattice from rows of glyphs: '.' empty, '#' path, 'h' hidden,
// '+' cross, 'S' special. Row index is y, column index is x.
func draw(rows ...string) *Lattice {
	l := New(len(rows), testTerrain.Empty)
	for y, row := range rows {
		for x, c := range row {
			var v TileValue
			switch c {
			case '#':
				v = testTerrain.Path
			case 'h':
				v = testTerrain.Hidden
			case '+':
				v = testTerrain.Cross
			case 'S':
				v = special
			default:
				v = testTerrain.Empty
			}
			l.Set(Point{X: x, Y: y}, v)
		}
	}
	return l
}

func TestTileValueString(t *testing.T) {
	if got := TileValue(0x0A01FF).String(); got != "0A01FF" {
		t.Errorf("String() = %q, want %q", got, "0A01FF")
	}
}

func TestSetOutOfBoundsPanics(t *testing.T) {
	l := New(4, 0)
	defer func() {
		if recover() == nil {
			t.Error("Set outside the lattice did not panic")
		}
	}()
	l.Set(Point{X: 4, Y: 0}, 1)
}

func TestGetOutOfBounds(t *testing.T) {
	l := New(4, 7)
	if _, ok := l.Get(Point{X: -1, Y: 2}); ok {
		t.Error("Get(-1,2) reported in bounds")
	}
	if v, ok := l.Get(Point{X: 3, Y: 3}); !ok || v != 7 {
		t.Errorf("Get(3,3) = %v, %v; want 7, true", v, ok)
	}
}

func TestClamp(t *testing.T) {
	l := New(Size, 0)
	tests := []struct {
		in, want Point
	}{
		{Point{-5, 50}, Point{0, 50}},
		{Point{104, 120}, Point{99, 99}},
		{Point{10, 10}, Point{10, 10}},
	}
	for _, tt := range tests {
		if got := l.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := New(5, 0)
	c := l.Clone()
	c.Set(Point{X: 1, Y: 1}, 9)
	if l.At(Point{X: 1, Y: 1}) != 0 {
		t.Error("mutating the clone changed the original")
	}
	if l.Equal(c) {
		t.Error("Equal reported different lattices as equal")
	}
	l.CopyFrom(c)
	if !l.Equal(c) {
		t.Error("CopyFrom did not copy contents")
	}
}

func TestFindScanOrder(t *testing.T) {
	l := draw(
		"..S",
		"S..",
		"...",
	)
	p, ok := l.Find(special)
	if !ok {
		t.Fatal("Find returned false")
	}
	// x-major scan: (0,1) comes before (2,0).
	if want := (Point{X: 0, Y: 1}); p != want {
		t.Errorf("Find = %v, want %v", p, want)
	}
}

func TestDirectionOffsets(t *testing.T) {
	var sum Point
	for _, d := range AllDirections() {
		o := d.Offset()
		if abs(o.X)+abs(o.Y) != 1 {
			t.Errorf("%v offset %v is not a unit step", d, o)
		}
		sum = sum.Add(o)
	}
	if sum != (Point{}) {
		t.Errorf("offsets sum to %v, want zero", sum)
	}
}

func TestIsConnected(t *testing.T) {
	tests := []struct {
		name  string
		rows  []string
		start Point
		want  bool
	}{
		{
			name:  "single corridor",
			rows:  []string{"###", "..#", "..S"},
			start: Point{0, 0},
			want:  true,
		},
		{
			name:  "diagonal only",
			rows:  []string{"#..", ".#.", "..."},
			start: Point{0, 0},
			want:  false,
		},
		{
			name:  "cross ignored",
			rows:  []string{"#+#", "...", "..."},
			start: Point{0, 0},
			want:  false,
		},
		{
			name:  "isolated cross does not count",
			rows:  []string{"##.", "...", "..+"},
			start: Point{0, 0},
			want:  true,
		},
		{
			name:  "hidden is traversable",
			rows:  []string{"#hS", "...", "..."},
			start: Point{0, 0},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := draw(tt.rows...)
			if got := IsConnected(l, tt.start, testTerrain); got != tt.want {
				t.Errorf("IsConnected = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComponents(t *testing.T) {
	l := draw(
		"##..#",
		".....",
		"S+h..",
		".....",
		"....#",
	)
	groups := Components(l, testTerrain)
	if len(groups) != 5 {
		t.Fatalf("Components = %d groups, want 5", len(groups))
	}
	sizes := 0
	for _, g := range groups {
		sizes += len(g)
	}
	if want := l.Count(testTerrain.Counted); sizes != want {
		t.Errorf("components cover %d cells, want %d", sizes, want)
	}
	if groups[0][0] != (Point{0, 0}) {
		t.Errorf("first group starts at %v, want (0,0)", groups[0][0])
	}
}

func TestBresenham(t *testing.T) {
	tests := []struct {
		a, b Point
		n    int
	}{
		{Point{0, 0}, Point{5, 0}, 6},
		{Point{0, 0}, Point{3, 3}, 4},
		{Point{7, 2}, Point{1, 5}, 7},
		{Point{4, 4}, Point{4, 4}, 1},
	}
	for _, tt := range tests {
		line := Bresenham(tt.a, tt.b)
		if len(line) != tt.n {
			t.Errorf("Bresenham(%v,%v) len = %d, want %d", tt.a, tt.b, len(line), tt.n)
		}
		if line[0] != tt.a || line[len(line)-1] != tt.b {
			t.Errorf("Bresenham(%v,%v) endpoints = %v..%v", tt.a, tt.b, line[0], line[len(line)-1])
		}
		for i := 1; i < len(line); i++ {
			if abs(line[i].X-line[i-1].X) > 1 || abs(line[i].Y-line[i-1].Y) > 1 {
				t.Errorf("Bresenham(%v,%v) jumps between %v and %v", tt.a, tt.b, line[i-1], line[i])
			}
		}
	}
}

func TestStepLineIsFourConnected(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {6, 3}},
		{{9, 9}, {2, 0}},
		{{5, 1}, {5, 8}},
		{{3, 3}, {3, 3}},
	}
	for _, pr := range pairs {
		line := StepLine(pr[0], pr[1])
		if line[0] != pr[0] || line[len(line)-1] != pr[1] {
			t.Errorf("StepLine(%v,%v) endpoints = %v..%v", pr[0], pr[1], line[0], line[len(line)-1])
		}
		for i := 1; i < len(line); i++ {
			if abs(line[i].X-line[i-1].X)+abs(line[i].Y-line[i-1].Y) != 1 {
				t.Errorf("StepLine(%v,%v) not 4-connected at %v -> %v", pr[0], pr[1], line[i-1], line[i])
			}
		}
	}
}

func TestCompletePath(t *testing.T) {
	l := draw(
		"#....",
		".....",
		".....",
		"....S",
		".....",
	)
	converted, err := CompletePath(l, Point{4, 3}, testTerrain, testTerrain.Hidden)
	if err != nil {
		t.Fatalf("CompletePath returned error: %v", err)
	}
	if len(converted) == 0 {
		t.Fatal("CompletePath converted no cells")
	}
	for _, p := range converted {
		if l.At(p) != testTerrain.Hidden {
			t.Errorf("converted cell %v = %v, want hidden", p, l.At(p))
		}
	}
	if l.At(Point{4, 3}) != special {
		t.Error("anchor special tile was overwritten")
	}
	if l.At(Point{0, 0}) != testTerrain.Path {
		t.Error("target path cell was overwritten")
	}
	// Diagonal moves are allowed, so the route is as long as the Chebyshev distance.
	if len(converted) != 3 {
		t.Errorf("converted %d cells, want 3", len(converted))
	}
}

func TestCompletePathFromPathIsNoop(t *testing.T) {
	l := draw("#.", "..")
	converted, err := CompletePath(l, Point{0, 0}, testTerrain, testTerrain.Path)
	if err != nil || len(converted) != 0 {
		t.Errorf("CompletePath on a path cell = %v, %v; want nothing", converted, err)
	}
}

func TestCompletePathNoPath(t *testing.T) {
	l := draw(
		"S...",
		"....",
		"..hh",
		"..h#",
	)
	_, err := CompletePath(l, Point{0, 0}, testTerrain, testTerrain.Path)
	if !errors.Is(err, ErrNoPath) {
		t.Errorf("CompletePath error = %v, want ErrNoPath", err)
	}
}
