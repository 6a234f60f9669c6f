package placement

import (
	"errors"
	"testing"

	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/lattice"
	"github.com/lawnchairsociety/dungeongen/internal/refine"
	"github.com/lawnchairsociety/dungeongen/internal/seed"
)

const testTiles = `
tiles:
  - {id: "000000", name: EMPTY, color: "#000000"}
  - {id: "000001", name: PATH, color: "#FFFFFF"}
  - {id: "000002", name: HIDDEN, color: "#C8C8C8"}
  - {id: "000003", name: CROSS, color: "#8B4513"}
  - {id: "000100", name: "00", color: "#00FF00"}
  - {id: "000101", name: "01", color: "#FF0000"}
  - {id: "000102", name: "02", color: "#0000FF"}
  - id: "000500"
    name: Gate
    color: "#9400D3"
    tags: [Teleporter]
    levels: [1, 3, 4]
    max_per_dungeon: 2
  - id: "000900"
    name: Beacon
    color: "#556B2F"
    tags: [Idol]
    placements:
      - {level: 2, x: 17, y: 12}
  - id: "000300"
    name: Chest
    color: "#DAA520"
    tags: [Treasure]
    levels: [3]
`

const (
	gate   lattice.TileValue = 0x000500
	beacon lattice.TileValue = 0x000900
	chest  lattice.TileValue = 0x000300
)

var start = lattice.Point{X: 10, Y: 5}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testTiles))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return c
}

// corridors returns a 20x20 lattice with paths on rows 5 and 7, joined by a
// column at x=1.
func corridors(c *catalog.Catalog) *lattice.Lattice {
	r := c.Roles()
	l := lattice.New(20, r.Empty)
	for x := 1; x < 19; x++ {
		l.Set(lattice.Point{X: x, Y: 5}, r.Path)
		l.Set(lattice.Point{X: x, Y: 7}, r.Path)
	}
	l.Set(lattice.Point{X: 1, Y: 6}, r.Path)
	return l
}

func newPlacer(c *catalog.Catalog, s int64, opts Options) *Placer {
	rng := seed.NewFromInt(s)
	return New(c, nil, refine.New(c.Terrain(), rng, refine.TargetRandom), rng, opts)
}

func count(l *lattice.Lattice, id lattice.TileValue) int {
	return l.Count(func(v lattice.TileValue) bool { return v == id })
}

func TestPlaceEntryAndStairs(t *testing.T) {
	c := testCatalog(t)
	r := c.Roles()

	tests := []struct {
		level int
		entry lattice.TileValue
	}{
		{0, r.Entry},
		{1, r.StairsUp},
	}
	for _, tt := range tests {
		l := corridors(c)
		p := newPlacer(c, 7, Options{})
		res, err := p.Place(l, tt.level, start, NewRegistry(c).Begin())
		if err != nil {
			t.Fatalf("level %d: Place error: %v", tt.level, err)
		}
		if got := l.At(start); got != tt.entry {
			t.Errorf("level %d: entry cell = %s, want %s", tt.level, got, tt.entry)
		}
		if count(l, r.StairsDown) != 1 {
			t.Errorf("level %d: %d stairs down, want 1", tt.level, count(l, r.StairsDown))
		}
		if l.At(res.StairsDown) != r.StairsDown {
			t.Errorf("level %d: result stairs %v holds %s", tt.level, res.StairsDown, l.At(res.StairsDown))
		}
		if !lattice.IsConnected(l, start, r.Terrain) {
			t.Errorf("level %d: floor not connected after placement", tt.level)
		}
	}
}

func TestPlaceEntryWithoutPath(t *testing.T) {
	c := testCatalog(t)
	l := lattice.New(20, c.Roles().Empty)
	_, err := newPlacer(c, 1, Options{}).Place(l, 0, start, NewRegistry(c).Begin())
	if err == nil {
		t.Fatal("Place on an empty lattice succeeded")
	}
	if l.At(start) != c.Roles().Empty {
		t.Errorf("entry write not reverted: %s", l.At(start))
	}
}

func TestPlacePinnedExact(t *testing.T) {
	c := testCatalog(t)
	l := corridors(c)
	res, err := newPlacer(c, 3, Options{}).Place(l, 2, start, NewRegistry(c).Begin())
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	pin := lattice.Point{X: 17, Y: 12}
	if got := l.At(pin); got != beacon {
		t.Fatalf("pinned cell = %s, want %s", got, beacon)
	}
	found := false
	for _, placed := range res.Placed {
		if placed.ID == beacon && placed.At == pin && placed.Family == "idol" {
			found = true
		}
	}
	if !found {
		t.Errorf("result does not record the pinned tile: %+v", res.Placed)
	}
}

// refusingRouter routes like the refiner but never joins cells holding
// refuse.
type refusingRouter struct {
	*refine.Refiner
	refuse lattice.TileValue
}

func (r refusingRouter) CompletePath(l *lattice.Lattice, anchor lattice.Point, target refine.Target) error {
	if l.At(anchor) == r.refuse {
		return errors.New("no route")
	}
	return r.Refiner.CompletePath(l, anchor, target)
}

func TestPlaceReportsMissingAndOverCap(t *testing.T) {
	c := testCatalog(t)
	rng := seed.NewFromInt(5)
	router := refusingRouter{Refiner: refine.New(c.Terrain(), rng, refine.TargetRandom), refuse: chest}
	p := New(c, nil, router, rng, Options{})

	ledger := NewRegistry(c).Begin()
	ledger.Record(gate)
	ledger.Record(gate)

	l := corridors(c)
	res, err := p.Place(l, 3, start, ledger)
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if len(res.Missing) != 1 || res.Missing[0] != chest {
		t.Errorf("Missing = %v, want [%s]", res.Missing, chest)
	}
	if res.OverCap != 1 {
		t.Errorf("OverCap = %d, want 1", res.OverCap)
	}
	if n := count(l, chest); n != 0 {
		t.Errorf("%d chests left on the floor", n)
	}
	if n := count(l, gate); n != 0 {
		t.Errorf("%d gates placed past the cap", n)
	}
}

func TestRegistryCapAcrossFloors(t *testing.T) {
	c := testCatalog(t)
	reg := NewRegistry(c)
	if limit, ok := reg.Cap(gate); !ok || limit != 2 {
		t.Fatalf("Cap(gate) = %d, %v", limit, ok)
	}

	placed := 0
	for _, level := range []int{1, 3, 4} {
		l := corridors(c)
		ledger := reg.Begin()
		if _, err := newPlacer(c, int64(level), Options{}).Place(l, level, start, ledger); err != nil {
			t.Fatalf("level %d: Place error: %v", level, err)
		}
		placed += count(l, gate)
		ledger.Commit()
	}
	if placed != 2 {
		t.Errorf("gate placed %d times, want 2", placed)
	}
	if reg.Count(gate) != 2 {
		t.Errorf("registry count = %d, want 2", reg.Count(gate))
	}
}

func TestLedgerDiscardedAttempt(t *testing.T) {
	c := testCatalog(t)
	reg := NewRegistry(c)

	discarded := reg.Begin()
	discarded.Record(gate)
	discarded.Record(gate)
	if discarded.Allows(gate) {
		t.Error("ledger allows a third gate")
	}

	fresh := reg.Begin()
	if !fresh.Allows(gate) {
		t.Error("discarded ledger leaked into the registry")
	}
	fresh.Record(gate)
	fresh.Record(beacon)
	fresh.Commit()
	if reg.Count(gate) != 1 {
		t.Errorf("Count(gate) = %d, want 1", reg.Count(gate))
	}
	if reg.Count(beacon) != 0 {
		t.Errorf("uncapped tile counted: %d", reg.Count(beacon))
	}
}

func TestCheatMode(t *testing.T) {
	c := testCatalog(t)
	tests := []struct {
		level int
		cheat bool
		want  int
	}{
		{0, false, 0},
		{3, false, 1},
		{0, true, 1},
		{3, true, 0},
	}
	for _, tt := range tests {
		l := corridors(c)
		p := newPlacer(c, 11, Options{CheatMode: tt.cheat})
		if _, err := p.Place(l, tt.level, start, NewRegistry(c).Begin()); err != nil {
			t.Fatalf("level %d cheat %v: Place error: %v", tt.level, tt.cheat, err)
		}
		if got := count(l, chest); got != tt.want {
			t.Errorf("level %d cheat %v: %d chests, want %d", tt.level, tt.cheat, got, tt.want)
		}
	}
}

func TestCrossesInBand(t *testing.T) {
	c := testCatalog(t)
	r := c.Roles()
	opts := Options{CrossBand: Band{Min: 2, Max: 2}, CrossCount: 3, MergeThreshold: 3}

	l := corridors(c)
	res, err := newPlacer(c, 5, opts).Place(l, 2, start, NewRegistry(c).Begin())
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if len(res.Crosses) != 3 {
		t.Fatalf("placed %d crosses, want 3", len(res.Crosses))
	}
	for _, at := range res.Crosses {
		if l.At(at) != r.Cross {
			t.Errorf("cross at %v holds %s", at, l.At(at))
		}
	}

	outside := corridors(c)
	res, err = newPlacer(c, 5, opts).Place(outside, 1, start, NewRegistry(c).Begin())
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if len(res.Crosses) != 0 || count(outside, r.Cross) != 0 {
		t.Errorf("crosses written outside the band")
	}
}

func TestBandContains(t *testing.T) {
	b := Band{Min: 50, Max: 58}
	for level, want := range map[int]bool{49: false, 50: true, 54: true, 58: true, 59: false} {
		if got := b.Contains(level); got != want {
			t.Errorf("Contains(%d) = %v, want %v", level, got, want)
		}
	}
	if (Band{}).Contains(0) {
		t.Error("zero band contains level 0")
	}
}
