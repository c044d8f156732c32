package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.UndoLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.Throttle())
	assert.Equal(t, "curved", cfg.Link.Style)
	assert.False(t, cfg.Grid.Enabled)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowedit.toml")
	want := Default()
	want.UndoLimit = 12
	want.Grid = GridConfig{Enabled: true, Size: 25}
	want.Link.Style = "orthogonal"

	require.NoError(t, Save(path, want))

	got, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, got.UndoLimit)
	assert.True(t, got.Grid.Enabled)
	assert.Equal(t, 25.0, got.Grid.Size)
	assert.Equal(t, "orthogonal", got.Link.Style)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowedit.toml")
	require.NoError(t, Save(path, Default()))

	t.Setenv("FLOWEDIT_GRID_SIZE", "5")
	t.Setenv("FLOWEDIT_UNDO_LIMIT", "7")

	cfg, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Grid.Size)
	assert.Equal(t, 7, cfg.UndoLimit)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FLOWEDIT_LINK_STYLE", "straight")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse([]string{"--link.style=orthogonal"}))

	cfg, err := LoadFile("", fs)
	require.NoError(t, err)
	assert.Equal(t, "orthogonal", cfg.Link.Style)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero undo limit", func(c *Config) { c.UndoLimit = 0 }},
		{"negative throttle", func(c *Config) { c.ThrottleMs = -1 }},
		{"zero grid", func(c *Config) { c.Grid.Size = 0 }},
		{"bad style", func(c *Config) { c.Link.Style = "wavy" }},
		{"inverted zoom", func(c *Config) { c.Zoom.Min, c.Zoom.Max = 2, 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "undo_limit", envKey("UNDO_LIMIT"))
	assert.Equal(t, "grid.size", envKey("GRID_SIZE"))
	assert.Equal(t, "log.json", envKey("LOG_JSON"))
}
