package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/umbra/engine/core"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	StartPosX int `toml:"start_pos_x"`
	StartPosY int `toml:"start_pos_y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight   int    `toml:"frames_in_flight"`
	EnableValidation bool   `toml:"enable_validation"`
	ShadowMapSize    uint32 `toml:"shadow_map_size"`
	// Upper bound for the G-buffer sample count. The device maximum wins when lower.
	MaxSamples uint32 `toml:"max_samples"`
	// Prefer FIFO even when mailbox is available.
	VSync bool `toml:"vsync"`
}

type AssetsConfig struct {
	Root          string `toml:"root"`
	DebugSettings string `toml:"debug_settings"`
	Model         string `toml:"model"`
	Watch         bool   `toml:"watch"`
}

type Config struct {
	LogLevel core.LogLevel  `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: core.LogLevelInfo,
		Window: WindowConfig{
			Name:      "Umbra",
			StartPosX: 100,
			StartPosY: 100,
			Width:     1280,
			Height:    720,
		},
		Renderer: RendererConfig{
			FramesInFlight:   2,
			EnableValidation: true,
			ShadowMapSize:    1024,
			MaxSamples:       8,
		},
		Assets: AssetsConfig{
			Root:          "assets",
			DebugSettings: "assets/config/debug.toml",
			Model:         "assets/models/pyramid.gltf",
			Watch:         true,
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size must be non zero, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return fmt.Errorf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Renderer.ShadowMapSize == 0 {
		return errors.New("shadow_map_size must be non zero")
	}
	if c.Renderer.MaxSamples == 0 || c.Renderer.MaxSamples&(c.Renderer.MaxSamples-1) != 0 {
		return fmt.Errorf("max_samples must be a power of two, got %d", c.Renderer.MaxSamples)
	}
	return nil
}
