// Package config loads editor settings from defaults, an optional TOML file,
// FLOWEDIT_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	ktoml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the settings file looked up in the working directory.
const FileName = "flowedit.toml"

// Config holds all editor settings.
type Config struct {
	UndoLimit  int            `koanf:"undo_limit" toml:"undo_limit"`
	ThrottleMs int            `koanf:"throttle_ms" toml:"throttle_ms"`
	Grid       GridConfig     `koanf:"grid" toml:"grid"`
	Port       PortConfig     `koanf:"port" toml:"port"`
	Link       LinkConfig     `koanf:"link" toml:"link"`
	Log        LogConfig      `koanf:"log" toml:"log"`
	Workarea   WorkareaConfig `koanf:"workarea" toml:"workarea"`
	Render     RenderConfig   `koanf:"render" toml:"render"`
	Zoom       ZoomConfig     `koanf:"zoom" toml:"zoom"`
}

// GridConfig controls grid snapping of node positions.
type GridConfig struct {
	Enabled bool    `koanf:"enabled" toml:"enabled"`
	Size    float64 `koanf:"size" toml:"size"`
}

// PortConfig controls how static outbound ports fan out.
type PortConfig struct {
	Spacing float64 `koanf:"spacing" toml:"spacing"`
}

// LinkConfig sets the routing style of newly drawn links.
type LinkConfig struct {
	Style string `koanf:"style" toml:"style"` // "straight", "curved", "orthogonal"
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `koanf:"level" toml:"level"`
	JSON  bool   `koanf:"json" toml:"json"`
}

// WorkareaConfig sizes the default background workarea.
type WorkareaConfig struct {
	Width  float64 `koanf:"width" toml:"width"`
	Height float64 `koanf:"height" toml:"height"`
}

// RenderConfig sizes exported images.
type RenderConfig struct {
	Width  int `koanf:"width" toml:"width"`
	Height int `koanf:"height" toml:"height"`
}

// ZoomConfig bounds the zoom ratio.
type ZoomConfig struct {
	Min float64 `koanf:"min" toml:"min"`
	Max float64 `koanf:"max" toml:"max"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		UndoLimit:  30,
		ThrottleMs: 300,
		Grid:       GridConfig{Enabled: false, Size: 10},
		Port:       PortConfig{Spacing: 40},
		Link:       LinkConfig{Style: "curved"},
		Log:        LogConfig{Level: "info"},
		Workarea:   WorkareaConfig{Width: 600, Height: 400},
		Render:     RenderConfig{Width: 1024, Height: 768},
		Zoom:       ZoomConfig{Min: 0.1, Max: 5},
	}
}

func defaultsMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"undo_limit":      d.UndoLimit,
		"throttle_ms":     d.ThrottleMs,
		"grid.enabled":    d.Grid.Enabled,
		"grid.size":       d.Grid.Size,
		"port.spacing":    d.Port.Spacing,
		"link.style":      d.Link.Style,
		"log.level":       d.Log.Level,
		"log.json":        d.Log.JSON,
		"workarea.width":  d.Workarea.Width,
		"workarea.height": d.Workarea.Height,
		"render.width":    d.Render.Width,
		"render.height":   d.Render.Height,
		"zoom.min":        d.Zoom.Min,
		"zoom.max":        d.Zoom.Max,
	}
}

// Throttle returns the undo/redo throttle window.
func (c Config) Throttle() time.Duration {
	return time.Duration(c.ThrottleMs) * time.Millisecond
}

// Validate checks the settings that the engine cannot work around.
func (c Config) Validate() error {
	if c.UndoLimit <= 0 {
		return fmt.Errorf("undo_limit must be positive, got %d", c.UndoLimit)
	}
	if c.ThrottleMs < 0 {
		return fmt.Errorf("throttle_ms must not be negative, got %d", c.ThrottleMs)
	}
	if c.Grid.Size <= 0 {
		return fmt.Errorf("grid.size must be positive, got %g", c.Grid.Size)
	}
	switch c.Link.Style {
	case "straight", "curved", "orthogonal":
	default:
		return fmt.Errorf("link.style %q is not one of straight, curved, orthogonal", c.Link.Style)
	}
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min {
		return fmt.Errorf("zoom bounds invalid: min=%g max=%g", c.Zoom.Min, c.Zoom.Max)
	}
	return nil
}

// Flags registers the command-line flags understood by Load.
func Flags(f *pflag.FlagSet) {
	d := Default()
	f.Int("undo_limit", d.UndoLimit, "maximum number of undo levels")
	f.Int("throttle_ms", d.ThrottleMs, "undo/redo throttle window in milliseconds")
	f.Bool("grid.enabled", d.Grid.Enabled, "snap node positions to the grid")
	f.Float64("grid.size", d.Grid.Size, "grid cell size")
	f.String("link.style", d.Link.Style, "routing style for new links (straight, curved, orthogonal)")
	f.String("log.level", d.Log.Level, "log level (trace, debug, info, warn, error)")
	f.Bool("log.json", d.Log.JSON, "emit JSON log lines")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(FileName, f)
}

// LoadFile is Load with an explicit settings file path.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(defaultsMap()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The settings file is optional.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), ktoml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	// FLOWEDIT_GRID_SIZE=20 -> grid.size
	if err := k.Load(env.Provider("FLOWEDIT_", ".", func(s string) string {
		return envKey(strings.TrimPrefix(s, "FLOWEDIT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps the part of an environment variable after the prefix to a
// config key. Top-level keys keep their underscore; sectioned keys use the
// first underscore as the section separator.
func envKey(s string) string {
	s = strings.ToLower(s)
	switch s {
	case "undo_limit", "throttle_ms":
		return s
	}
	return strings.Replace(s, "_", ".", 1)
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	if _, err := fh.WriteString("# flowedit configuration\n"); err != nil {
		return err
	}
	return toml.NewEncoder(fh).Encode(cfg)
}

type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
