package core

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	return writeFile(t, dir, "vkclear.toml", content)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(800), cfg.Application.StartWidth)
	assert.Equal(t, uint32(600), cfg.Application.StartHeight)
	assert.Equal(t, uint32(3), cfg.Renderer.MinImageCount)
	assert.Equal(t, [3]uint8{6, 3, 1}, cfg.ClearColor.Delta)
	assert.Equal(t, ^uint64(0), cfg.Renderer.FenceTimeout())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[application]
name = "test"

[log]
level = "WARN"

[renderer]
min_image_count = 2
fence_timeout_ms = 250
validation = false

[clear_color]
delta = [1, 2, 3]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Application.Name)
	// untouched keys keep their defaults
	assert.Equal(t, uint32(800), cfg.Application.StartWidth)
	assert.Equal(t, uint32(2), cfg.Renderer.MinImageCount)
	assert.False(t, cfg.Renderer.Validation)
	assert.Equal(t, uint64(250_000_000), cfg.Renderer.FenceTimeout())
	assert.Equal(t, [3]uint8{1, 2, 3}, cfg.ClearColor.Delta)

	level, err := ParseLogLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, level)
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[renderer\nmin_image_count = 2\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at 1:")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Application.StartWidth = 0 }},
		{"zero height", func(c *Config) { c.Application.StartHeight = 0 }},
		{"zero images", func(c *Config) { c.Renderer.MinImageCount = 0 }},
		{"unknown level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[renderer]\nmin_image_count = 0\n")
	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFenceTimeoutClampsLargeValues(t *testing.T) {
	maxMS := uint64(math.MaxInt64 / int64(time.Millisecond))

	cfg := RendererConfig{FenceTimeoutMS: maxMS}
	assert.Equal(t, maxMS*uint64(time.Millisecond), cfg.FenceTimeout())

	cfg.FenceTimeoutMS = maxMS + 1
	assert.Equal(t, ^uint64(0), cfg.FenceTimeout())

	cfg.FenceTimeoutMS = ^uint64(0)
	assert.Equal(t, ^uint64(0), cfg.FenceTimeout())
}
