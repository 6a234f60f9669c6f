package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/dungeongen/internal/lattice"
)

// Wanderer is a roaming character whose spawn cells must be corridor.
type Wanderer struct {
	Name       string      `yaml:"name"`
	Placements []Placement `yaml:"placements"`
}

// WandererTable lists every wanderer of the dungeon.
type WandererTable []Wanderer

// At returns the spawn cells on level, in table order.
func (w WandererTable) At(level int) []lattice.Point {
	var out []lattice.Point
	for _, wanderer := range w {
		for _, p := range wanderer.Placements {
			if p.Level == level {
				out = append(out, p.Point())
			}
		}
	}
	return out
}

type wanderersFile struct {
	Wanderers WandererTable `yaml:"wanderers"`
}

// ParseWanderers reads a wanderer table from YAML.
func ParseWanderers(data []byte) (WandererTable, error) {
	var f wanderersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse wanderer table: %w", err)
	}
	for _, w := range f.Wanderers {
		for _, p := range w.Placements {
			if p.X < 0 || p.X >= lattice.Size || p.Y < 0 || p.Y >= lattice.Size {
				return nil, fmt.Errorf("wanderer %q: placement %v outside the lattice", w.Name, p.Point())
			}
		}
	}
	return f.Wanderers, nil
}

// LoadWanderers reads a wanderer table from a YAML file.
func LoadWanderers(path string) (WandererTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wanderer table: %w", err)
	}
	return ParseWanderers(data)
}

// DefaultWanderers returns the table compiled into the binary.
func DefaultWanderers() (WandererTable, error) {
	data, err := dataFS.ReadFile(defaultWanderersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded wanderers: %w", err)
	}
	return ParseWanderers(data)
}
