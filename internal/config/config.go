package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything an App needs to run.
type Config struct {
	ModulesPath string   `yaml:"modules_path"`
	OutputDir   string   `yaml:"output_dir"`
	LogLevel    string   `yaml:"log_level"`
	LogFormat   string   `yaml:"log_format"`
	Defaults    Defaults `yaml:"defaults"`
}

// Defaults are the play header values used when a playbook does not set them.
type Defaults struct {
	Hosts       string `yaml:"hosts"`
	GatherFacts *bool  `yaml:"gather_facts"`
}

// GatherFactsOr returns the configured gather_facts default, or fallback when
// none is set.
func (d Defaults) GatherFactsOr(fallback bool) bool {
	if d.GatherFacts == nil {
		return fallback
	}
	return *d.GatherFacts
}

// Default returns the built-in configuration.
func Default() *Config {
	gather := true
	return &Config{
		ModulesPath: "modules",
		OutputDir:   "generated_playbooks",
		LogLevel:    "info",
		LogFormat:   "text",
		Defaults: Defaults{
			Hosts:       "all",
			GatherFacts: &gather,
		},
	}
}

// Load reads a YAML configuration file and overlays it on Default. Keys the
// file leaves out keep their default values; unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []string
	if c.ModulesPath == "" {
		problems = append(problems, "modules_path must not be empty")
	}
	if c.OutputDir == "" {
		problems = append(problems, "output_dir must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log_format %q: must be 'text' or 'json'", c.LogFormat))
	}
	if strings.TrimSpace(c.Defaults.Hosts) == "" {
		problems = append(problems, "defaults.hosts must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}
