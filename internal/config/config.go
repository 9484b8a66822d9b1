// Package config loads pipeline settings from a YAML file, the environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultMaxTokenLen matches the workflow's tokens.max_len default.
const DefaultMaxTokenLen = 30

// DefaultGlob selects PubMed baseline and update files.
const DefaultGlob = "*.xml.gz"

// Config holds every tunable of a pipeline run.
type Config struct {
	Tokens  TokenConfig  `yaml:"tokens"`
	Input   InputConfig  `yaml:"input"`
	Output  OutputConfig `yaml:"output"`
	Workers int          `yaml:"workers"`
	Resume  bool         `yaml:"resume"`
}

// TokenConfig governs title/abstract sanitization.
type TokenConfig struct {
	MaxLen int `yaml:"max_len"`
}

// InputConfig locates the XML shards.
type InputConfig struct {
	Dir  string `yaml:"dir"`
	Glob string `yaml:"glob"`
}

// OutputConfig locates batch files and the final dataset.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a configuration with all defaults applied.
func Default() Config {
	return Config{
		Tokens:  TokenConfig{MaxLen: DefaultMaxTokenLen},
		Input:   InputConfig{Dir: ".", Glob: DefaultGlob},
		Output:  OutputConfig{Dir: "output"},
		Workers: runtime.NumCPU(),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults; a path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PUBMEDCORPUS_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PUBMEDCORPUS_MAX_TOKEN_LEN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PUBMEDCORPUS_MAX_TOKEN_LEN %q: %w", v, err)
		}
		c.Tokens.MaxLen = n
	}
	if v := os.Getenv("PUBMEDCORPUS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PUBMEDCORPUS_WORKERS %q: %w", v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv("PUBMEDCORPUS_INPUT_DIR"); v != "" {
		c.Input.Dir = v
	}
	if v := os.Getenv("PUBMEDCORPUS_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	return nil
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Tokens.MaxLen <= 0 {
		errs = append(errs, fmt.Errorf("tokens.max_len must be positive, got %d", c.Tokens.MaxLen))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Input.Dir == "" {
		errs = append(errs, errors.New("input.dir is required"))
	}
	if c.Input.Glob == "" {
		errs = append(errs, errors.New("input.glob is required"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	return errors.Join(errs...)
}
