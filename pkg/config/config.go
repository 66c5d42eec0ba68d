// Package config loads diffgrader configuration from TOML, YAML, or JSON
// files, falling back to defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/diffgrader/diffgrader/pkg/similarity"
)

// Config holds all configuration options for diffgrader.
type Config struct {
	// Analysis settings for the matching engine.
	Analysis AnalysisConfig `koanf:"analysis"`

	// File exclusion patterns applied while scanning submissions.
	Exclude ExcludeConfig `koanf:"exclude"`

	// Server settings for serve mode.
	Server ServerConfig `koanf:"server"`

	// Output settings.
	Output OutputConfig `koanf:"output"`
}

// AnalysisConfig controls the matching engine.
type AnalysisConfig struct {
	// SimilarityThreshold is the minimum score for an approximate match.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`
	// ExactThreshold splits accepted matches into exact vs similar.
	ExactThreshold float64 `koanf:"exact_threshold"`
	// Similarity blend weights.
	SignatureWeight float64 `koanf:"signature_weight"`
	NameWeight      float64 `koanf:"name_weight"`
	StructureWeight float64 `koanf:"structure_weight"`
	// Workers bounds parallel file extraction (0 = 2x NumCPU).
	Workers int `koanf:"workers"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns []string `koanf:"patterns"`
	Dirs     []string `koanf:"dirs"`
}

// ServerConfig controls the REST server.
type ServerConfig struct {
	Addr           string   `koanf:"addr"`
	DSN            string   `koanf:"dsn"`
	UploadDir      string   `koanf:"upload_dir"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
	CORSOrigins    []string `koanf:"cors_origins"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			SimilarityThreshold: 0.7,
			ExactThreshold:      0.95,
			SignatureWeight:     0.4,
			NameWeight:          0.3,
			StructureWeight:     0.3,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*Test.java",
				"*Tests.java",
				"package-info.java",
			},
			Dirs: []string{
				".git",
				"target",
				"build",
				"out",
				".gradle",
				"node_modules",
			},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			DSN:            "file:diffgrader.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)",
			UploadDir:      "uploads",
			MaxUploadBytes: 50 << 20,
			CORSOrigins:    []string{"*"},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file. The loaded config is validated;
// out-of-range thresholds are a configuration error, not something to
// clamp at run time.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"diffgrader.toml",
		"diffgrader.yaml",
		"diffgrader.yml",
		"diffgrader.json",
		".diffgrader.toml",
		".diffgrader.yaml",
		".diffgrader.yml",
		".diffgrader.json",
	}

	for _, dir := range []string{".", ".diffgrader"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate checks threshold and weight ranges.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.SimilarityThreshold < 0 || a.SimilarityThreshold > 1 {
		return fmt.Errorf("analysis.similarity_threshold %v outside [0,1]", a.SimilarityThreshold)
	}
	if a.ExactThreshold < 0 || a.ExactThreshold > 1 {
		return fmt.Errorf("analysis.exact_threshold %v outside [0,1]", a.ExactThreshold)
	}
	for name, w := range map[string]float64{
		"analysis.signature_weight": a.SignatureWeight,
		"analysis.name_weight":      a.NameWeight,
		"analysis.structure_weight": a.StructureWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s %v outside [0,1]", name, w)
		}
	}
	if a.Workers < 0 {
		return fmt.Errorf("analysis.workers must not be negative")
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}
	return nil
}

// Weights returns the configured similarity blend.
func (c *Config) Weights() similarity.Weights {
	return similarity.Weights{
		Signature: c.Analysis.SignatureWeight,
		Name:      c.Analysis.NameWeight,
		Structure: c.Analysis.StructureWeight,
	}
}

// ShouldExclude checks if a path should be excluded from scanning.
func (c *Config) ShouldExclude(path string) bool {
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
