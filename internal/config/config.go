// Package config loads optional bridge settings from a TOML file under the
// XDG config directory. A missing file yields the defaults; values are
// clamped to sane ranges.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// configFile is the path of the config file relative to the XDG config root.
const configFile = "ptybridge/config.toml"

// Tuning bounds for the multiplex loop.
const (
	minChunkSize      = 256
	maxChunkSize      = 64 * 1024
	minPollIntervalMs = 10
	maxPollIntervalMs = 1000
)

// Config holds all bridge settings.
type Config struct {
	Terminal Terminal `toml:"terminal"`
	Bridge   Bridge   `toml:"bridge"`
}

// Terminal configures the capability the child sees and the initial window
// geometry (zero means keep the device default).
type Terminal struct {
	Term      string `toml:"term"`
	ColorTerm string `toml:"colorterm"`
	Cols      int    `toml:"cols"`
	Rows      int    `toml:"rows"`
}

// Bridge tunes the multiplex loop.
type Bridge struct {
	ChunkSize      int `toml:"chunk_size"`
	PollIntervalMs int `toml:"poll_interval_ms"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Terminal: Terminal{
			Term:      "xterm-256color",
			ColorTerm: "truecolor",
		},
		Bridge: Bridge{
			ChunkSize:      1024,
			PollIntervalMs: 100,
		},
	}
}

// Path returns the config file location, creating parent directories.
func Path() (string, error) {
	return xdg.ConfigFile(configFile)
}

// Load reads the config file at path, or the default XDG location when path
// is empty. A missing file is not an error and yields Default().
func Load(path string) (*Config, error) {
	var err error
	if path == "" {
		path, err = Path()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.clamp()
	return cfg, nil
}

// clamp pulls out-of-range tuning values back into their bounds.
func (c *Config) clamp() {
	if c.Bridge.ChunkSize <= 0 {
		c.Bridge.ChunkSize = Default().Bridge.ChunkSize
	} else if c.Bridge.ChunkSize < minChunkSize {
		c.Bridge.ChunkSize = minChunkSize
	} else if c.Bridge.ChunkSize > maxChunkSize {
		c.Bridge.ChunkSize = maxChunkSize
	}
	if c.Bridge.PollIntervalMs <= 0 {
		c.Bridge.PollIntervalMs = Default().Bridge.PollIntervalMs
	} else if c.Bridge.PollIntervalMs < minPollIntervalMs {
		c.Bridge.PollIntervalMs = minPollIntervalMs
	} else if c.Bridge.PollIntervalMs > maxPollIntervalMs {
		c.Bridge.PollIntervalMs = maxPollIntervalMs
	}
	if c.Terminal.Cols < 0 {
		c.Terminal.Cols = 0
	}
	if c.Terminal.Rows < 0 {
		c.Terminal.Rows = 0
	}
	if c.Terminal.Term == "" {
		c.Terminal.Term = Default().Terminal.Term
	}
	if c.Terminal.ColorTerm == "" {
		c.Terminal.ColorTerm = Default().Terminal.ColorTerm
	}
}
