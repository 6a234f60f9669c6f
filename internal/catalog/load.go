package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"
	"gopkg.in/yaml.v3"
)

type tilesFile struct {
	Tiles []TileDescriptor `yaml:"tiles"`
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f tilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tile catalog: %w", err)
	}
	if len(f.Tiles) == 0 {
		return nil, fmt.Errorf("%w: catalog has no tiles", ErrMissingRole)
	}
	return New(f.Tiles)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	data, err := dataFS.ReadFile(defaultTilesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Marshal writes c back out in the same YAML shape Parse reads.
func Marshal(c *Catalog) ([]byte, error) {
	return yaml.Marshal(tilesFile{Tiles: c.Tiles()})
}

// Source locates catalog data: empty means embedded, a plain path is read
// directly, anything else (https://, s3::, git::...) is fetched with
// go-getter into cacheDir first.
type Source struct {
	Tiles     string
	Wanderers string
	CacheDir  string
}

// Open resolves both tables of src.
func Open(ctx context.Context, src Source) (*Catalog, WandererTable, error) {
	tilesPath, err := resolve(ctx, src.Tiles, src.CacheDir, "tiles.yaml")
	if err != nil {
		return nil, nil, err
	}
	wanderersPath, err := resolve(ctx, src.Wanderers, src.CacheDir, "wanderers.yaml")
	if err != nil {
		return nil, nil, err
	}

	var cat *Catalog
	if tilesPath == "" {
		cat, err = Default()
	} else {
		cat, err = Load(tilesPath)
	}
	if err != nil {
		return nil, nil, err
	}

	var wanderers WandererTable
	if wanderersPath == "" {
		wanderers, err = DefaultWanderers()
	} else {
		wanderers, err = LoadWanderers(wanderersPath)
	}
	if err != nil {
		return nil, nil, err
	}
	return cat, wanderers, nil
}

// resolve returns a local path for location, downloading it when remote.
// An empty location resolves to "" (use embedded data).
func resolve(ctx context.Context, location, cacheDir, name string) (string, error) {
	if location == "" {
		return "", nil
	}
	if !isRemote(location) {
		return location, nil
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "dungeongen-catalog")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create catalog cache: %w", err)
	}
	dst := filepath.Join(cacheDir, name)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  location,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	return dst, nil
}

func isRemote(location string) bool {
	return strings.Contains(location, "://") || strings.Contains(location, "::")
}
