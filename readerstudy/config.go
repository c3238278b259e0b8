package readerstudy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "readerstudy.yaml"

// ScorerKind selects the widget used for a category.
type ScorerKind string

const (
	// KindSlider records a number in [Min, Max].
	KindSlider ScorerKind = "slider"
	// KindCheck records 0 or 1.
	KindCheck ScorerKind = "check"
	// KindRadio records one of Options.
	KindRadio ScorerKind = "radio"
	// KindSelect records one of Options from a drop-down.
	KindSelect ScorerKind = "select"
)

// CategoryConfig describes one scored category. Every display column gets its own
// widget for each category.
type CategoryConfig struct {
	Name    string     `yaml:"name"`
	Kind    ScorerKind `yaml:"kind"`
	Min     float64    `yaml:"min,omitempty"`
	Max     float64    `yaml:"max,omitempty"`
	Step    float64    `yaml:"step,omitempty"`
	Options []string   `yaml:"options,omitempty"`
	Default string     `yaml:"default,omitempty"`
}

// ImagesConfig selects where the image table comes from: a manifest file or HDF5 slices.
type ImagesConfig struct {
	Manifest string   `yaml:"manifest,omitempty"`
	IDColumn string   `yaml:"idColumn,omitempty"`
	Slices   []string `yaml:"slices,omitempty"`
	CacheDir string   `yaml:"cacheDir,omitempty"`
	// CacheTTLSeconds enables caching of materialised slices. Zero re-reads on every access.
	CacheTTLSeconds int `yaml:"cacheTTLSeconds,omitempty"`
}

// Config aggregates the settings persisted to readerstudy.yaml.
type Config struct {
	Title      string           `yaml:"title"`
	Columns    []string         `yaml:"columns"`
	NCols      int              `yaml:"ncols,omitempty"`
	CellSize   float32          `yaml:"cellSize"`
	LabelsPath string           `yaml:"labelsPath,omitempty"`
	Shuffle    bool             `yaml:"shuffle,omitempty"`
	Seed       int64            `yaml:"seed,omitempty"`
	Images     ImagesConfig     `yaml:"images"`
	Categories []CategoryConfig `yaml:"categories"`
}

// ApplyDefaults populates zero values and normalizes names.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Title) == "" {
		c.Title = "Reader Study"
	}
	if c.CellSize <= 0 {
		c.CellSize = 256
	}
	if c.Images.IDColumn == "" {
		c.Images.IDColumn = "id"
	}
	if c.Images.CacheDir == "" {
		c.Images.CacheDir = "./cache"
	}
	c.Columns = NormalizeNames(c.Columns)
	if len(c.Categories) == 0 {
		c.Categories = []CategoryConfig{{Name: "quality", Kind: KindSlider, Min: 0, Max: 5, Step: 1, Default: "0"}}
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = NormalizeName(cat.Name)
		if cat.Kind == "" {
			cat.Kind = KindSlider
		}
		if cat.Kind == KindSlider {
			if cat.Max <= cat.Min {
				cat.Max = cat.Min + 5
			}
			if cat.Step <= 0 {
				cat.Step = 1
			}
		}
		if (cat.Kind == KindRadio || cat.Kind == KindSelect) && cat.Default == "" && len(cat.Options) > 0 {
			cat.Default = cat.Options[0]
		}
	}
}

// Validate reports configuration errors that defaults cannot repair.
func (c Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return errors.New("category without name")
		}
		if _, dup := seen[cat.Name]; dup {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = struct{}{}
		switch cat.Kind {
		case KindSlider, KindCheck:
		case KindRadio, KindSelect:
			if len(cat.Options) == 0 {
				return fmt.Errorf("category %q: %s needs options", cat.Name, cat.Kind)
			}
		default:
			return fmt.Errorf("category %q: unknown kind %q", cat.Name, cat.Kind)
		}
	}
	if c.Images.Manifest != "" && len(c.Images.Slices) > 0 {
		return errors.New("images: set either manifest or slices, not both")
	}
	return nil
}

// LoadConfig reads path or the default readerstudy.yaml. A missing file yields defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
