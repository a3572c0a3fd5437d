// Package config loads chunkworld settings from a YAML file.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	ProfileDesktop     = "desktop"
	ProfileConstrained = "constrained"
)

// ErrInvalidConfig wraps every schema or parse failure.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("schema.json", schemaJSON)

type Config struct {
	Profile  string  `yaml:"profile" json:"profile"`
	LogLevel string  `yaml:"log_level" json:"log_level"`
	Store    Store   `yaml:"store" json:"store"`
	Stream   Stream  `yaml:"stream" json:"stream"`
	Terrain  Terrain `yaml:"terrain" json:"terrain"`
}

type Store struct {
	Path string `yaml:"path" json:"path"`
}

type Stream struct {
	ActiveRadius     int     `yaml:"active_radius" json:"active_radius"`
	CacheCap         int     `yaml:"cache_cap" json:"cache_cap"`
	EvictBatch       int     `yaml:"evict_batch" json:"evict_batch"`
	EvictProbability float64 `yaml:"evict_probability" json:"evict_probability"`
	SaveConcurrency  int     `yaml:"save_concurrency" json:"save_concurrency"`
}

type Terrain struct {
	Frequency       float64 `yaml:"frequency" json:"frequency"`
	Amplitude       float64 `yaml:"amplitude" json:"amplitude"`
	VerticalOffset  int     `yaml:"vertical_offset" json:"vertical_offset"`
	SubsurfaceDepth int     `yaml:"subsurface_depth" json:"subsurface_depth"`
	TreeChance      float64 `yaml:"tree_chance" json:"tree_chance"`
	TreeMargin      int     `yaml:"tree_margin" json:"tree_margin"`
	CornerDropRate  float64 `yaml:"corner_drop_rate" json:"corner_drop_rate"`
}

// Default returns the desktop profile.
func Default() Config {
	return ForProfile(ProfileDesktop)
}

// ForProfile returns defaults tuned for a device class. Unknown profiles get
// desktop values with the name kept, so Validate can reject it.
func ForProfile(profile string) Config {
	cfg := Config{
		Profile:  profile,
		LogLevel: "info",
		Store:    Store{Path: "world/chunkworld.db"},
		Stream: Stream{
			ActiveRadius:     3,
			CacheCap:         500,
			EvictBatch:       50,
			EvictProbability: 0.01,
			SaveConcurrency:  8,
		},
		Terrain: Terrain{
			Frequency:       0.05,
			Amplitude:       4,
			VerticalOffset:  8,
			SubsurfaceDepth: 3,
			TreeChance:      0.01,
			TreeMargin:      2,
			CornerDropRate:  0.4,
		},
	}
	if profile == ProfileConstrained {
		cfg.Stream.ActiveRadius = 2
		cfg.Stream.EvictProbability = 0.05
		cfg.Stream.SaveConcurrency = 2
	}
	return cfg
}

// Load reads path. A missing file yields Default(). Values absent from the
// file keep the defaults of the profile the file names.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if head.Profile == "" {
		head.Profile = ProfileDesktop
	}

	cfg := ForProfile(head.Profile)
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps values that are valid but inconsistent with each other.
func (c *Config) Normalize() {
	c.Stream.ActiveRadius = min(max(c.Stream.ActiveRadius, 1), 16)
	c.Stream.CacheCap = max(c.Stream.CacheCap, (2*c.Stream.ActiveRadius+1)*(2*c.Stream.ActiveRadius+1))
	c.Stream.EvictBatch = min(max(c.Stream.EvictBatch, 1), c.Stream.CacheCap)
	c.Stream.SaveConcurrency = max(c.Stream.SaveConcurrency, 1)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks c against the embedded JSON schema.
func (c Config) Validate() error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
