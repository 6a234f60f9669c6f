// Package config loads the dungeongen YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/dungeongen/internal/archive"
	"github.com/lawnchairsociety/dungeongen/internal/catalog"
	"github.com/lawnchairsociety/dungeongen/internal/export"
	"github.com/lawnchairsociety/dungeongen/internal/generator"
	"github.com/lawnchairsociety/dungeongen/internal/placement"
	"github.com/lawnchairsociety/dungeongen/internal/refine"
	"github.com/lawnchairsociety/dungeongen/internal/telemetry"
	"github.com/lawnchairsociety/dungeongen/internal/terrain"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("config: invalid")

// Config is the full configuration file.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Output     OutputConfig     `yaml:"output"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  telemetry.Config `yaml:"telemetry"`
}

// GenerationConfig holds the dungeon run settings.
type GenerationConfig struct {
	Seed              string  `yaml:"seed"`
	Floors            int     `yaml:"floors"`
	Strategy          string  `yaml:"strategy"`
	Param             int     `yaml:"param"`
	DiversifyFraction float64 `yaml:"diversify_fraction"`
	MaxAttempts       int     `yaml:"max_attempts"`
	MaxIterations     int     `yaml:"max_iterations"`
	MaxRefineFailures int     `yaml:"max_refine_failures"`
	MergeThreshold    int     `yaml:"merge_threshold"`
	CrossBand         Band    `yaml:"cross_band"`
	CrossCount        int     `yaml:"cross_count"`
	CheatMode         bool    `yaml:"cheat_mode"`
	RequireAllTiles   bool    `yaml:"require_all_tiles"`
	// RepairTarget is "random", "path" or "hidden".
	RepairTarget string `yaml:"repair_target"`
}

// Band is an inclusive level range.
type Band struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// CatalogConfig locates the tile and wanderer tables. Each may be empty
// (embedded defaults), a local path, or a go-getter URL.
type CatalogConfig struct {
	Tiles     string `yaml:"tiles"`
	Wanderers string `yaml:"wanderers"`
	CacheDir  string `yaml:"cache_dir"`
}

// OutputConfig selects the artifacts written per floor.
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	PNG         bool   `yaml:"png"`
	Upscaled    bool   `yaml:"upscaled"`
	UpscaleSize int    `yaml:"upscale_size"`
	Binary      bool   `yaml:"binary"`
	// Debug writes an image for every rejected attempt.
	Debug bool `yaml:"debug"`
}

// ArchiveConfig enables the seed archive.
type ArchiveConfig struct {
	Enabled        bool `yaml:"enabled"`
	archive.Config `yaml:",inline"`
}

// ServerConfig holds the generation service settings.
type ServerConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`

	// MaxFloors caps the floors one request may ask for.
	MaxFloors int `yaml:"max_floors"`
}

// ConnectionsConfig bounds concurrent WebSocket sessions. Zero means unlimited.
type ConnectionsConfig struct {
	MaxPerIP int `yaml:"max_per_ip"`
	MaxTotal int `yaml:"max_total"`
	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins lists origins allowed to connect. An empty list
	// enforces same-origin; "*" allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the largest request accepted, in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Generation: GenerationConfig{
			Floors:            generator.DefaultFloors,
			Strategy:          string(terrain.Voronoi),
			MaxAttempts:       generator.DefaultMaxAttempts,
			MaxIterations:     generator.DefaultMaxIterations,
			MaxRefineFailures: generator.DefaultMaxRefineFailures,
			MergeThreshold:    generator.DefaultMergeThreshold,
			CrossBand:         Band{Min: generator.DefaultCrossBandMin, Max: generator.DefaultCrossBandMax},
			CrossCount:        generator.DefaultCrossCount,
			RepairTarget:      refine.TargetRandom.String(),
		},
		Output: OutputConfig{
			Dir:         "output",
			PNG:         true,
			Upscaled:    true,
			UpscaleSize: export.DefaultUpscale,
			Binary:      true,
		},
		Archive: ArchiveConfig{
			Config: archive.DefaultConfig("data/archive.db"),
		},
		Server: ServerConfig{
			Address: ":8080",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{},
				MaxMessageSize: 4096,
			},
			MaxFloors: generator.DefaultFloors,
			Connections: ConnectionsConfig{
				MaxPerIP: 2,
				MaxTotal: 32,
			},
		},
		Telemetry: telemetry.Config{ServiceName: "dungeongen"},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing file yields the
// defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	return config, nil
}

// Validate reports the first setting generation cannot start with.
func (c *Config) Validate() error {
	g := c.Generation
	if _, err := terrain.ParseStrategy(g.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := refine.ParseTarget(g.RepairTarget); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if g.Floors <= 0 {
		return fmt.Errorf("%w: floors must be positive, got %d", ErrInvalid, g.Floors)
	}
	if g.Param < 0 {
		return fmt.Errorf("%w: param must not be negative, got %d", ErrInvalid, g.Param)
	}
	if g.DiversifyFraction < 0 || g.DiversifyFraction > 1 {
		return fmt.Errorf("%w: diversify_fraction %v outside [0,1]", ErrInvalid, g.DiversifyFraction)
	}
	if g.CrossBand.Min > g.CrossBand.Max {
		return fmt.Errorf("%w: cross_band min %d above max %d", ErrInvalid, g.CrossBand.Min, g.CrossBand.Max)
	}
	if g.CrossCount < 0 {
		return fmt.Errorf("%w: cross_count must not be negative", ErrInvalid)
	}
	if c.Server.MaxFloors <= 0 {
		return fmt.Errorf("%w: server max_floors must be positive", ErrInvalid)
	}
	if c.Output.UpscaleSize < 0 {
		return fmt.Errorf("%w: upscale_size must not be negative", ErrInvalid)
	}
	if c.Archive.Enabled {
		switch archive.DialectType(c.Archive.Driver) {
		case archive.DialectSQLite:
			if c.Archive.SQLitePath == "" {
				return fmt.Errorf("%w: archive sqlite_path is empty", ErrInvalid)
			}
		case archive.DialectPostgres:
			if c.Archive.Postgres.Database == "" {
				return fmt.Errorf("%w: archive postgres database is empty", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: unknown archive driver %q", ErrInvalid, c.Archive.Driver)
		}
	}
	return nil
}

// Options converts the generation section into generator options.
func (g GenerationConfig) Options() (generator.Options, error) {
	strategy, err := terrain.ParseStrategy(g.Strategy)
	if err != nil {
		return generator.Options{}, err
	}
	target, err := refine.ParseTarget(g.RepairTarget)
	if err != nil {
		return generator.Options{}, err
	}
	return generator.Options{
		Seed:              g.Seed,
		Strategy:          strategy,
		Param:             g.Param,
		DiversifyFraction: g.DiversifyFraction,
		Floors:            g.Floors,
		MaxAttempts:       g.MaxAttempts,
		MaxIterations:     g.MaxIterations,
		MaxRefineFailures: g.MaxRefineFailures,
		MergeThreshold:    g.MergeThreshold,
		CrossBand:         placement.Band{Min: g.CrossBand.Min, Max: g.CrossBand.Max},
		CrossCount:        g.CrossCount,
		CheatMode:         g.CheatMode,
		RequireAllTiles:   g.RequireAllTiles,
		RepairTarget:      target,
	}, nil
}

// Source converts the catalog section for catalog.Open.
func (c CatalogConfig) Source() catalog.Source {
	return catalog.Source{Tiles: c.Tiles, Wanderers: c.Wanderers, CacheDir: c.CacheDir}
}

// Files converts the output section for export.NewWriter.
func (o OutputConfig) Files() export.Files {
	return export.Files{PNG: o.PNG, Upscaled: o.Upscaled, Bin: o.Binary, UpscaleSize: o.UpscaleSize}
}

// IsOriginAllowed reports whether a WebSocket handshake from origin may
// proceed:
//   - AllowedOrigins contains "*" or the exact origin, or
//   - AllowedOrigins is empty and origin matches the request host.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin compares the host part of origin with the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser clients send no Origin
	}
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")
	return originHost == requestHost
}
