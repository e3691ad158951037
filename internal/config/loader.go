package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lmsession/internal/common/fsutil"
)

// Config holds runtime parameters for the CLI.
// Zero values mean "unspecified" and will be replaced by defaults by the
// caller. Sampling fields are pointers so an explicit 0 (greedy temperature,
// disabled top-k) is distinguishable from unset.
type Config struct {
	ModelsDir     string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Model         string `json:"model" yaml:"model" toml:"model"`
	Engine        string `json:"engine" yaml:"engine" toml:"engine"`
	Threads       int    `json:"threads" yaml:"threads" toml:"threads"`
	ContextLength int    `json:"context_length" yaml:"context_length" toml:"context_length"`
	BatchSize     int    `json:"batch_size" yaml:"batch_size" toml:"batch_size"`

	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	Seed        *int     `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty" yaml:"stop,omitempty" toml:"stop,omitempty"`

	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MetricsFile  string `json:"metrics_file" yaml:"metrics_file" toml:"metrics_file"`
	DrainTimeout string `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges that can be judged without defaults.
func (c Config) Validate() error {
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", c.Threads)
	}
	if c.ContextLength < 0 {
		return fmt.Errorf("context_length must be >= 0, got %d", c.ContextLength)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be >= 0, got %d", c.BatchSize)
	}
	switch c.Engine {
	case "", "auto", "llama", "toy":
	default:
		return fmt.Errorf("unknown engine %q (want auto, llama or toy)", c.Engine)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	if _, err := c.Drain(); err != nil {
		return err
	}
	return nil
}

// Drain parses DrainTimeout. Empty yields 0 (manager default).
func (c Config) Drain() (time.Duration, error) {
	if c.DrainTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.DrainTimeout)
	if err != nil {
		return 0, fmt.Errorf("drain_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("drain_timeout must be >= 0, got %s", d)
	}
	return d, nil
}
