/*
PURPOSE:
  Defines the configuration structure and loading logic for Tag Runner.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of the Ollama URL, image and results directories.
  - Allow extra model profiles without recompiling.
  - Overriding a builtin profile by name keeps its unset fields and prompts.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (TAG_RUNNER_...).

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default files fall back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults should be sensible (e.g., 5s probe timeout).

USAGE:
  cfg, err := config.Load("tag_runner.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go
  - internal/profile/registry.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/tag-runner/internal/profile"
)

// Environment variables that override file values.
const (
	EnvOllamaURL  = "TAG_RUNNER_OLLAMA_URL"
	EnvImageDir   = "TAG_RUNNER_IMAGE_DIR"
	EnvResultsDir = "TAG_RUNNER_RESULTS_DIR"
	EnvModel      = "TAG_RUNNER_MODEL"
)

// Config represents the full configuration for Tag Runner.
type Config struct {
	OllamaURL    string        `yaml:"ollama_url"`
	ImageDir     string        `yaml:"image_dir"`
	ResultsDir   string        `yaml:"results_dir"`
	BaseDir      string        `yaml:"base_dir"` // image paths in records are relative to this
	Extensions   []string      `yaml:"extensions"`
	DefaultModel string        `yaml:"default_model"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	WriteCSV     bool          `yaml:"write_csv"`
	// Profiles adds to or overrides the builtin model profiles by name. An
	// override only replaces the fields it sets; prompts merge per kind and
	// temperature 0 keeps the builtin value.
	Profiles []profile.Profile `yaml:"profiles"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OllamaURL:    "http://localhost:11434",
		ImageDir:     "./test_images",
		ResultsDir:   "./test_results",
		BaseDir:      ".",
		Extensions:   []string{".jpg", ".jpeg", ".png"},
		DefaultModel: profile.DefaultName,
		ProbeTimeout: 5 * time.Second,
		WriteCSV:     true,
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		found := false
		for _, name := range []string{"tag_runner.yaml", "runner.yaml"} {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from TAG_RUNNER_* environment variables.
func (c *Config) ApplyEnv() {
	for env, field := range map[string]*string{
		EnvOllamaURL:  &c.OllamaURL,
		EnvImageDir:   &c.ImageDir,
		EnvResultsDir: &c.ResultsDir,
		EnvModel:      &c.DefaultModel,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.OllamaURL == "" {
		errs = append(errs, errors.New("ollama_url cannot be empty"))
	}
	if c.ImageDir == "" {
		errs = append(errs, errors.New("image_dir cannot be empty"))
	}
	if c.ResultsDir == "" {
		errs = append(errs, errors.New("results_dir cannot be empty"))
	}
	if len(c.Extensions) == 0 {
		errs = append(errs, errors.New("extensions cannot be empty"))
	}
	if c.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe_timeout must be positive"))
	}
	for i, p := range c.Profiles {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("profiles[%d]: name is required", i))
		}
	}
	return errors.Join(errs...)
}

// Registry builds the profile catalog: builtins overlaid with config profiles.
func (c *Config) Registry() (*profile.Registry, error) {
	return profile.Merge(profile.Default(), c.Profiles...)
}
