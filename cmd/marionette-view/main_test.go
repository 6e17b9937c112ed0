package main

import (
	"flag"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phanxgames/marionette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
archive = "walk.zip"
animation = "Walk"
scale = 2
watch = false
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "walk.zip", cfg.Archive)
	assert.Equal(t, "Walk", cfg.Animation)
	assert.Equal(t, 2, cfg.Scale)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "screenshots", cfg.ScreenshotDir, "unset keys keep defaults")
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.toml")
	require.NoError(t, os.WriteFile(path, []byte("zoom = 3\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigFlagsOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Archive = "a.zip"
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Bind(fset)
	require.NoError(t, fset.Parse([]string{"-scale", "6", "-x3", "-script", "wave.json"}))
	assert.Equal(t, 6, cfg.Scale)
	assert.True(t, cfg.X3)
	assert.Equal(t, "wave.json", cfg.Script)
	assert.Equal(t, "a.zip", cfg.Archive)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
		ok   bool
	}{
		{"valid", func(c *Config) { c.Archive = "a.zip" }, true},
		{"no archive", func(c *Config) {}, false},
		{"zero scale", func(c *Config) { c.Archive = "a.zip"; c.Scale = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "unlabeled", sanitizeLabel("  "))
	assert.Equal(t, "My_Project-1.0", sanitizeLabel("My Project-1.0"))
	assert.Equal(t, "a_b_c", sanitizeLabel("a/b\\c"))
}

func TestSaveScreenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path, err := saveScreenshot(dir, "walk cycle", img, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260102_030405_walk_cycle.png"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCheckerImage(t *testing.T) {
	bg := marionette.BackgroundColors{
		Color1: marionette.ColorFromHex(0xffffff),
		Color2: marionette.ColorFromHex(0x000000),
	}
	img := checkerImage(2*checkerSize, checkerSize, bg)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(checkerSize, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(checkerSize, 0).A)
}

func TestFindAnimation(t *testing.T) {
	p := marionette.New(marionette.DefaultConfig(), nil)
	first := p.Animations()[0]
	a, err := p.Animation(first)
	require.NoError(t, err)

	id, err := findAnimation(p, "")
	require.NoError(t, err)
	assert.Equal(t, first, id)

	id, err = findAnimation(p, a.Name)
	require.NoError(t, err)
	assert.Equal(t, first, id)

	_, err = findAnimation(p, "missing")
	assert.ErrorIs(t, err, marionette.ErrNotFound)

	empty := marionette.NewProject("", 4, 4, nil)
	id, err = findAnimation(empty, "")
	require.NoError(t, err)
	assert.Equal(t, marionette.NoID, id)
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.zip")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w, err := watchFile(path)
	require.NoError(t, err)
	defer w.Close()

	// Writes to other files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))

	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
