// Package catalog describes every tile a floor can hold: its id, display
// colour, tags, and the levels the game data pins it to.
package catalog

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// Reserved tile names. The generator cannot run without all of them.
const (
	NameEmpty      = "EMPTY"
	NamePath       = "PATH"
	NameHidden     = "HIDDEN"
	NameCross      = "CROSS"
	NameEntry      = "00"
	NameStairsDown = "01"
	NameStairsUp   = "02"
)

var (
	ErrMissingRole    = errors.New("catalog: missing required tile")
	ErrDuplicateTile  = errors.New("catalog: duplicate tile id")
	ErrDuplicateColor = errors.New("catalog: duplicate tile colour")
	ErrInvalidTile    = errors.New("catalog: invalid tile")
	ErrUnknownTile    = errors.New("catalog: unknown tile")
)

// Placement pins a tile to one cell of one level.
type Placement struct {
	Level int `yaml:"level"`
	X     int `yaml:"x"`
	Y     int `yaml:"y"`
}

// Point returns the pinned cell.
func (p Placement) Point() lattice.Point {
	return lattice.Point{X: p.X, Y: p.Y}
}

// Color is an opaque RGB colour written as "#RRGGBB".
type Color struct {
	R, G, B uint8
}

// ToRGBA converts to the opaque image/color value the exporters draw with.
func (c Color) ToRGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor reads "#RRGGBB" (the leading # is optional).
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("colour %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}

// TileDescriptor is one catalog entry.
type TileDescriptor struct {
	ID            lattice.TileValue `yaml:"-"`
	RawID         string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Color         Color             `yaml:"color"`
	Tags          []string          `yaml:"tags,omitempty"`
	Category      string            `yaml:"category,omitempty"`
	Placements    []Placement       `yaml:"placements,omitempty"`
	Levels        []int             `yaml:"levels,omitempty"`
	MaxPerDungeon int               `yaml:"max_per_dungeon,omitempty"`
}

// PinnedAt returns the cells this tile is pinned to on level.
func (d *TileDescriptor) PinnedAt(level int) []lattice.Point {
	var out []lattice.Point
	for _, p := range d.Placements {
		if p.Level == level {
			out = append(out, p.Point())
		}
	}
	return out
}

// OnLevel reports whether the tile appears somewhere on level without a
// pinned cell.
func (d *TileDescriptor) OnLevel(level int) bool {
	for _, l := range d.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// Capped reports whether the tile has a per-dungeon instance limit.
func (d *TileDescriptor) Capped() bool {
	return d.MaxPerDungeon > 0
}

// Roles are the reserved ids, resolved once at load time.
type Roles struct {
	lattice.Terrain
	Entry      lattice.TileValue
	StairsDown lattice.TileValue
	StairsUp   lattice.TileValue
}

// Catalog is immutable once built and safe to share between goroutines.
type Catalog struct {
	tiles   []TileDescriptor
	byID    map[lattice.TileValue]int
	byColor map[Color]lattice.TileValue
	byTag   map[string][]lattice.TileValue
	roles   Roles
}

// New indexes descriptors and resolves the reserved roles.
func New(tiles []TileDescriptor) (*Catalog, error) {
	c := &Catalog{
		tiles:   make([]TileDescriptor, 0, len(tiles)),
		byID:    make(map[lattice.TileValue]int, len(tiles)),
		byColor: make(map[Color]lattice.TileValue, len(tiles)),
		byTag:   make(map[string][]lattice.TileValue),
	}

	for _, t := range tiles {
		id, err := parseID(t.RawID)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidTile, t.Name, err)
		}
		t.ID = id
		if t.Name == "" {
			return nil, fmt.Errorf("%w %s: empty name", ErrInvalidTile, id)
		}
		if t.MaxPerDungeon < 0 {
			return nil, fmt.Errorf("%w %q: negative max_per_dungeon", ErrInvalidTile, t.Name)
		}
		for _, p := range t.Placements {
			if p.X < 0 || p.X >= lattice.Size || p.Y < 0 || p.Y >= lattice.Size {
				return nil, fmt.Errorf("%w %q: placement %v outside the lattice", ErrInvalidTile, t.Name, p.Point())
			}
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTile, id)
		}
		if other, dup := c.byColor[t.Color]; dup {
			return nil, fmt.Errorf("%w: %s used by %s and %s", ErrDuplicateColor, t.Color, other, id)
		}
		c.byID[id] = len(c.tiles)
		c.byColor[t.Color] = id
		c.tiles = append(c.tiles, t)
	}

	sort.Slice(c.tiles, func(i, j int) bool { return c.tiles[i].ID < c.tiles[j].ID })
	for i, t := range c.tiles {
		c.byID[t.ID] = i
		for _, tag := range t.Tags {
			c.addTag(tag, t.ID)
		}
		if t.Category != "" {
			c.addTag(t.Category, t.ID)
		}
	}

	if err := c.resolveRoles(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) addTag(tag string, id lattice.TileValue) {
	key := normalizeTag(tag)
	for _, existing := range c.byTag[key] {
		if existing == id {
			return
		}
	}
	c.byTag[key] = append(c.byTag[key], id)
}

func (c *Catalog) resolveRoles() error {
	byName := make(map[string]lattice.TileValue, len(c.tiles))
	for _, t := range c.tiles {
		if _, seen := byName[t.Name]; !seen {
			byName[t.Name] = t.ID
		}
	}
	lookup := func(name string) (lattice.TileValue, error) {
		id, ok := byName[name]
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrMissingRole, name)
		}
		return id, nil
	}

	var err error
	targets := []struct {
		name string
		dst  *lattice.TileValue
	}{
		{NameEmpty, &c.roles.Empty},
		{NamePath, &c.roles.Path},
		{NameHidden, &c.roles.Hidden},
		{NameCross, &c.roles.Cross},
		{NameEntry, &c.roles.Entry},
		{NameStairsDown, &c.roles.StairsDown},
		{NameStairsUp, &c.roles.StairsUp},
	}
	for _, target := range targets {
		if *target.dst, err = lookup(target.name); err != nil {
			return err
		}
	}
	return nil
}

func parseID(raw string) (lattice.TileValue, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return 0, errors.New("empty id")
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", raw, err)
	}
	if lattice.TileValue(v) > lattice.MaxTileValue {
		return 0, fmt.Errorf("id %q exceeds 24 bits", raw)
	}
	return lattice.TileValue(v), nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Roles returns the reserved ids.
func (c *Catalog) Roles() Roles {
	return c.roles
}

// Terrain returns the four terrain ids.
func (c *Catalog) Terrain() lattice.Terrain {
	return c.roles.Terrain
}

// Tiles returns every descriptor in id order. The slice must not be modified.
func (c *Catalog) Tiles() []TileDescriptor {
	return c.tiles
}

// Len returns the number of tiles.
func (c *Catalog) Len() int {
	return len(c.tiles)
}

// Descriptor returns the entry for id.
func (c *Catalog) Descriptor(id lattice.TileValue) (*TileDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.tiles[i], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id lattice.TileValue) bool {
	_, ok := c.byID[id]
	return ok
}

// Color returns the display colour of id.
func (c *Catalog) Color(id lattice.TileValue) (Color, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Color{}, false
	}
	return c.tiles[i].Color, true
}

// FromRGBA converts a raster colour, ignoring alpha.
func FromRGBA(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// ByColor maps a raster colour back to its tile id.
func (c *Catalog) ByColor(col Color) (lattice.TileValue, bool) {
	id, ok := c.byColor[col]
	return id, ok
}

// Tagged returns, in id order, the descriptors carrying tag as a tag or as
// their category. Matching ignores case.
func (c *Catalog) Tagged(tag string) []*TileDescriptor {
	ids := c.byTag[normalizeTag(tag)]
	out := make([]*TileDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, &c.tiles[c.byID[id]])
	}
	return out
}

// Name returns the tile name for id, or its hex form when unknown.
func (c *Catalog) Name(id lattice.TileValue) string {
	if d, ok := c.Descriptor(id); ok {
		return d.Name
	}
	return id.String()
}
