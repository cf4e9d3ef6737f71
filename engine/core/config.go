package core

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	StartPosX uint32 `toml:"x"`
	// Window starting position y axis.
	StartPosY uint32 `toml:"y"`
	// Window starting width.
	StartWidth uint32 `toml:"width"`
	// Window starting height.
	StartHeight uint32 `toml:"height"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	// Requested number of presentable images. The frame ring is sized by the
	// count the presentation engine actually returns.
	MinImageCount uint32 `toml:"min_image_count"`
	// Upper bound for fence and acquire waits. Zero means unbounded.
	FenceTimeoutMS uint64 `toml:"fence_timeout_ms"`
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation bool `toml:"validation"`
}

type ClearColorConfig struct {
	Start [3]uint8 `toml:"start"`
	Delta [3]uint8 `toml:"delta"`
}

type WatchConfig struct {
	Enabled bool `toml:"enabled"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Renderer    RendererConfig    `toml:"renderer"`
	ClearColor  ClearColorConfig  `toml:"clear_color"`
	Watch       WatchConfig       `toml:"watch"`
}

// DefaultConfig is an 800x600 window with three presentable images, unbounded
// waits and +6/+3/+1 color steps.
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "Hello Vulkan",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  800,
			StartHeight: 600,
		},
		Log: LogConfig{
			Level: string(LogLevelDebug),
		},
		Renderer: RendererConfig{
			MinImageCount:  3,
			FenceTimeoutMS: 0,
			Validation:     true,
		},
		ClearColor: ClearColorConfig{
			Start: [3]uint8{0, 0, 0},
			Delta: [3]uint8{6, 3, 1},
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			LogWarn("config file `%s` not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse config `%s` at %d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config `%s`: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Application.StartWidth, c.Application.StartHeight)
	}
	if c.Renderer.MinImageCount == 0 {
		return fmt.Errorf("%w: renderer.min_image_count must be at least 1", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// FenceTimeout converts the configured timeout to the nanosecond value
// expected by the device. Zero, and any value too large to express in
// nanoseconds, maps to the largest representable timeout.
func (c *RendererConfig) FenceTimeout() uint64 {
	if c.FenceTimeoutMS == 0 || c.FenceTimeoutMS > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return ^uint64(0)
	}
	return uint64(time.Duration(c.FenceTimeoutMS) * time.Millisecond)
}
