package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the viewer configuration, read from TOML and overridden by
// command-line flags.
type Config struct {
	// Archive is the project file to open.
	Archive string `toml:"archive"`
	// Animation selects an animation by name; empty plays the first one.
	Animation string `toml:"animation"`
	// Scale is the integer zoom of the canvas in the window.
	Scale int `toml:"scale"`
	// Watch reloads the archive when it changes on disk.
	Watch bool `toml:"watch"`
	// X3 draws the smoothed x3 rest-pose textures instead of the posed
	// layers.
	X3            bool   `toml:"x3"`
	Debug         bool   `toml:"debug"`
	ScreenshotDir string `toml:"screenshot_dir"`
	Title         string `toml:"title"`
	// Script is a JSON tool script replayed one step per tick after load.
	Script string `toml:"script"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Scale:         4,
		Watch:         true,
		ScreenshotDir: "screenshots",
		Title:         "marionette",
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file yields the
// defaults; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Bind registers flags that override c. Flag defaults are c's current
// values.
func (c *Config) Bind(fset *flag.FlagSet) {
	fset.StringVar(&c.Archive, "archive", c.Archive, "project archive (.zip) to open")
	fset.StringVar(&c.Animation, "animation", c.Animation, "animation name to play")
	fset.IntVar(&c.Scale, "scale", c.Scale, "canvas zoom")
	fset.BoolVar(&c.Watch, "watch", c.Watch, "reload the archive when it changes")
	fset.BoolVar(&c.X3, "x3", c.X3, "draw x3 smoothed textures")
	fset.BoolVar(&c.Debug, "debug", c.Debug, "print render stats to stderr")
	fset.StringVar(&c.ScreenshotDir, "screenshots", c.ScreenshotDir, "screenshot directory")
	fset.StringVar(&c.Script, "script", c.Script, "JSON tool script to replay")
}

// Validate reports settings the viewer cannot run with.
func (c Config) Validate() error {
	if c.Archive == "" {
		return errors.New("no archive given")
	}
	if c.Scale < 1 {
		return fmt.Errorf("scale %d: must be at least 1", c.Scale)
	}
	return nil
}
