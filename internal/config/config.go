// Package config loads the dockfleet YAML configuration and resolves host
// names into per-host SSH settings.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agent462/dockfleet/internal/pathutil"
)

// Config represents the top-level dockfleet configuration.
type Config struct {
	Groups   map[string]Group `yaml:"groups"`
	Defaults Defaults         `yaml:"defaults"`
	Install  Install          `yaml:"install"`
}

// Group defines a named set of hosts with optional overrides.
type Group struct {
	Hosts   []string `yaml:"hosts"`
	User    string   `yaml:"user,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// Defaults holds default settings.
type Defaults struct {
	Concurrency int      `yaml:"concurrency"`
	Timeout     Duration `yaml:"timeout"`
	User        string   `yaml:"user,omitempty"`
	Insecure    bool     `yaml:"insecure,omitempty"`
	Output      string   `yaml:"output"` // "table" or "json"
	LogLevel    string   `yaml:"log_level,omitempty"`
	LogFormat   string   `yaml:"log_format,omitempty"`
}

// Install describes how Docker gets onto a target host.
type Install struct {
	ScriptURL  string   `yaml:"script_url"`
	ScriptPath string   `yaml:"script_path"`
	Timeout    Duration `yaml:"timeout"`
	// ScriptFile, when set, is a local copy of the install script that is
	// uploaded over SFTP instead of being downloaded on each host.
	ScriptFile string `yaml:"script_file,omitempty"`
}

// Duration wraps time.Duration to support YAML unmarshaling from strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = dur
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Groups: make(map[string]Group),
		Defaults: Defaults{
			Concurrency: 20,
			Timeout:     Duration{30 * time.Second},
			Output:      "table",
			LogLevel:    "warn",
			LogFormat:   "text",
		},
		Install: Install{
			ScriptURL:  "https://get.docker.com",
			ScriptPath: "get-docker.sh",
			Timeout:    Duration{10 * time.Minute},
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/dockfleet/config.yaml, falling
// back to ~/.config.
func DefaultConfigPath() string {
	return pathutil.ConfigFile("dockfleet", "config.yaml")
}

// Load reads and parses a config YAML file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Install.ScriptFile = pathutil.ExpandHome(cfg.Install.ScriptFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads the config from the default path. A missing file yields
// the default config.
func LoadDefault() (*Config, error) {
	path := DefaultConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Save writes the config to the given file path as YAML.
// It creates parent directories if they don't exist.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	if c.Defaults.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative, got %d", c.Defaults.Concurrency)
	}
	if c.Defaults.Timeout.Duration < 0 {
		return fmt.Errorf("default timeout must be non-negative, got %s", c.Defaults.Timeout)
	}

	validOutputModes := map[string]bool{"table": true, "json": true}
	if c.Defaults.Output != "" && !validOutputModes[c.Defaults.Output] {
		return fmt.Errorf("invalid output mode %q, must be one of: table, json", c.Defaults.Output)
	}

	if c.Defaults.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Defaults.LogLevel)); err != nil {
			return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Defaults.LogLevel)
		}
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if c.Defaults.LogFormat != "" && !validLogFormats[c.Defaults.LogFormat] {
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Defaults.LogFormat)
	}

	for name, group := range c.Groups {
		if len(group.Hosts) == 0 {
			return fmt.Errorf("group %q has no hosts", name)
		}
		if group.Timeout.Duration < 0 {
			return fmt.Errorf("group %q has negative timeout: %s", name, group.Timeout)
		}
	}

	if c.Install.ScriptPath == "" {
		return fmt.Errorf("install.script_path must not be empty")
	}
	if c.Install.ScriptURL == "" && c.Install.ScriptFile == "" {
		return fmt.Errorf("install needs a script_url or a script_file")
	}
	if c.Install.Timeout.Duration < 0 {
		return fmt.Errorf("install timeout must be non-negative, got %s", c.Install.Timeout)
	}
	if c.Install.ScriptFile != "" {
		if _, err := os.Stat(c.Install.ScriptFile); err != nil {
			return fmt.Errorf("install.script_file: %w", err)
		}
	}

	return nil
}
