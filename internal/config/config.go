// Package config handles ctmtool configuration loading and saving.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ctm "github.com/flywave/go-openctm"
)

// Config holds all tool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Codec   CodecConfig   `yaml:"codec"`
	Locator LocatorConfig `yaml:"locator"`
	Verify  VerifyConfig  `yaml:"verify"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// CodecConfig selects the default tier and the lossy precisions.
type CodecConfig struct {
	Tier            string `yaml:"tier"`
	VertexPrecision int    `yaml:"vertex_precision"`
	NormalPrecision int    `yaml:"normal_precision"`
	Comment         string `yaml:"comment"`
}

// LocatorConfig lists the directories searched for containers by name.
type LocatorConfig struct {
	Paths []string `yaml:"paths"`
}

// VerifyConfig holds round trip check settings.
type VerifyConfig struct {
	Tiers           []string `yaml:"tiers"`
	VolumeTolerance float64  `yaml:"volume_tolerance"`
}

// Default returns a Config with the built in defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Codec: CodecConfig{
			Tier:            "mg1",
			VertexPrecision: ctm.DEFAULT_VERTEX_PRECISION,
			NormalPrecision: ctm.DEFAULT_NORMAL_PRECISION,
		},
		Locator: LocatorConfig{
			Paths: []string{"."},
		},
		Verify: VerifyConfig{
			Tiers:           []string{"raw", "mg1", "mg2"},
			VolumeTolerance: ctm.DefaultVolumeTolerance,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFromFile merges a YAML file into cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveTo writes the config to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, err := ctm.ParseTier(c.Codec.Tier); err != nil {
		return err
	}
	if _, err := c.VerifyTiers(); err != nil {
		return err
	}
	if c.Codec.VertexPrecision < 0 || c.Codec.VertexPrecision > 30 {
		return fmt.Errorf("vertex_precision %d out of range", c.Codec.VertexPrecision)
	}
	if c.Codec.NormalPrecision < 0 || c.Codec.NormalPrecision > 30 {
		return fmt.Errorf("normal_precision %d out of range", c.Codec.NormalPrecision)
	}
	if c.Verify.VolumeTolerance < 0 {
		return fmt.Errorf("volume_tolerance %v is negative", c.Verify.VolumeTolerance)
	}
	return nil
}

func (c *Config) Tier() (ctm.CompressionTier, error) {
	return ctm.ParseTier(c.Codec.Tier)
}

func (c *Config) VerifyTiers() ([]ctm.CompressionTier, error) {
	return ParseTiers(c.Verify.Tiers)
}

// ParseTiers parses a tier list; an empty list means every tier.
func ParseTiers(names []string) ([]ctm.CompressionTier, error) {
	if len(names) == 0 {
		return ctm.Tiers(), nil
	}
	out := make([]ctm.CompressionTier, 0, len(names))
	for _, n := range names {
		t, err := ctm.ParseTier(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Config) EncoderOptions() ctm.EncoderOptions {
	return ctm.EncoderOptions{
		VertexPrecision: c.Codec.VertexPrecision,
		NormalPrecision: c.Codec.NormalPrecision,
	}
}

// Policies returns the tier policies with the configured lossy tolerance.
func (c *Config) Policies() map[ctm.CompressionTier]ctm.TolerancePolicy {
	ps := ctm.DefaultPolicies()
	p := ps[ctm.Tier2]
	p.VolumeTolerance = c.Verify.VolumeTolerance
	ps[ctm.Tier2] = p
	return ps
}
