package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the callmap configuration.
type Config struct {
	Exclude   ExcludeConfig   `yaml:"exclude"`
	Generated GeneratedConfig `yaml:"generated"`
	Output    OutputConfig    `yaml:"output"`
}

// ExcludeConfig defines patterns to exclude from analysis entirely.
type ExcludeConfig struct {
	Dirs      []string `yaml:"dirs"`
	FilesGlob []string `yaml:"files_glob"`
}

// GeneratedConfig defines how generated code is recognized. Files carrying
// the standard "Code generated ... DO NOT EDIT." marker are always treated
// as generated; these globs catch generators that omit the marker.
type GeneratedConfig struct {
	Globs []string `yaml:"globs"`
}

// OutputConfig defines where and how results are written.
type OutputConfig struct {
	Dot       string `yaml:"dot"`        // diagram file, relative to the analyzed dir
	GraphName string `yaml:"graph_name"` // digraph name in the DOT output
	Rankdir   string `yaml:"rankdir"`    // DOT layout direction
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Exclude: ExcludeConfig{
			Dirs: []string{"vendor", "third_party", "testdata"},
		},
		Generated: GeneratedConfig{
			Globs: []string{"**/*.pb.go", "**/*_gen.go", "**/zz_generated*.go"},
		},
		Output: OutputConfig{
			Dot:       "callmap.dot",
			GraphName: "callgraph",
			Rankdir:   "LR",
		},
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for callmap.yaml in the current directory.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = "callmap.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// No config file, use defaults
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults.Merge(&fileCfg)
	return defaults, nil
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "callmap.yaml"))
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Exclude.Dirs) > 0 {
		c.Exclude.Dirs = other.Exclude.Dirs
	}
	if len(other.Exclude.FilesGlob) > 0 {
		c.Exclude.FilesGlob = other.Exclude.FilesGlob
	}
	if len(other.Generated.Globs) > 0 {
		c.Generated.Globs = other.Generated.Globs
	}
	if other.Output.Dot != "" {
		c.Output.Dot = other.Output.Dot
	}
	if other.Output.GraphName != "" {
		c.Output.GraphName = other.Output.GraphName
	}
	if other.Output.Rankdir != "" {
		c.Output.Rankdir = other.Output.Rankdir
	}
}

// IsExcludedDir checks if a directory should be excluded from analysis.
func (c *Config) IsExcludedDir(dir string) bool {
	base := filepath.Base(dir)
	for _, excluded := range c.Exclude.Dirs {
		if base == excluded {
			return true
		}
	}
	return false
}
