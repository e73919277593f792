package svgdeck

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/rasterize"
	"github.com/flanksource/svgdeck/units"
)

// Config holds engine defaults, loaded from YAML.
type Config struct {
	Canvas CanvasConfig `yaml:"canvas"`
	// ScratchDir holds batch snapshots; empty means next to the output.
	ScratchDir      string `yaml:"scratchDir,omitempty"`
	CreateIfMissing bool   `yaml:"createIfMissing"`
	// AssumedUnit applies to bare numbers in tool coordinates.
	AssumedUnit       string `yaml:"assumedUnit"`
	FallbackMaxPixels int    `yaml:"fallbackMaxPixels"`
	Rasterizer        string `yaml:"rasterizer,omitempty"`
	Playwright        bool   `yaml:"playwright"`
	PreviewWidth      int    `yaml:"previewWidth"`
}

// CanvasConfig is the slide size used for new documents.
type CanvasConfig struct {
	Width  string `yaml:"width"`
	Height string `yaml:"height"`
}

func DefaultConfig() Config {
	return Config{
		Canvas:            CanvasConfig{Width: "16in", Height: "9in"},
		CreateIfMissing:   true,
		AssumedUnit:       "in",
		FallbackMaxPixels: rasterize.DefaultMaxPixels,
		PreviewWidth:      1280,
	}
}

// DefaultConfigPath is ~/.config/svgdeck/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "svgdeck.yaml")
	}
	return filepath.Join(home, ".config", "svgdeck", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating parent directories.
func SaveConfig(cfg Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := c.CanvasSize(); err != nil {
		return err
	}
	_, err := c.Unit()
	return err
}

// CanvasSize resolves the configured canvas; bare numbers are inches.
func (c Config) CanvasSize() (pptx.Size, error) {
	w, err := units.ToEMU(c.Canvas.Width, units.Inch, nil)
	if err != nil {
		return pptx.Size{}, fmt.Errorf("canvas width: %w", err)
	}
	h, err := units.ToEMU(c.Canvas.Height, units.Inch, nil)
	if err != nil {
		return pptx.Size{}, fmt.Errorf("canvas height: %w", err)
	}
	if w <= 0 || h <= 0 {
		return pptx.Size{}, fmt.Errorf("%w: canvas must be positive, got %s x %s", units.ErrInvalidExpression, c.Canvas.Width, c.Canvas.Height)
	}
	return pptx.Size{Width: w, Height: h}, nil
}

// Unit is the parsed AssumedUnit.
func (c Config) Unit() (units.Unit, error) {
	if c.AssumedUnit == "" {
		return units.Inch, nil
	}
	u, err := units.ParseUnit(c.AssumedUnit)
	if err != nil {
		return 0, fmt.Errorf("assumed unit: %w", err)
	}
	if u == units.Percent {
		return 0, fmt.Errorf("assumed unit: %w: %%", units.ErrUnsupportedUnit)
	}
	return u, nil
}
