package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUITEMUX_"

// DefaultFiles are the file names Find looks for, in order.
var DefaultFiles = []string{"suitemux.yaml", "suitemux.yml", "suitemux.json"}

// Child declares one child suite.
type Child struct {
	Label    string `mapstructure:"label"`
	Location string `mapstructure:"location"`
}

// Redis configures the Redis work queue.
type Redis struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// HTTP configures the status server.
type HTTP struct {
	Addr string `mapstructure:"addr"`
}

// Config is the file and environment configuration of the CLI.
type Config struct {
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	Reporter    string        `mapstructure:"reporter"`
	Color       string        `mapstructure:"color"` // auto, always or never
	LogLevel    string        `mapstructure:"log_level"`
	LogFormat   string        `mapstructure:"log_format"`

	// Base resolves relative child locations.
	Base string `mapstructure:"base"`
	// Processes is the path of the process registry file.
	Processes string `mapstructure:"processes"`
	// Local names the registered process that runs the local suite.
	Local string `mapstructure:"local"`

	Children []Child `mapstructure:"children"`
	Redis    Redis   `mapstructure:"redis"`
	HTTP     HTTP    `mapstructure:"http"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LoadTimeout: 60 * time.Second,
		Reporter:    "spec",
		Color:       "auto",
		LogFormat:   "text",
		Processes:   "processes.yaml",
		HTTP:        HTTP{Addr: ":8080"},
	}
}

// envKeys maps environment variables (without EnvPrefix) to config keys.
var envKeys = map[string][]string{
	"LOAD_TIMEOUT": {"load_timeout"},
	"REPORTER":     {"reporter"},
	"COLOR":        {"color"},
	"LOG_LEVEL":    {"log_level"},
	"LOG_FORMAT":   {"log_format"},
	"BASE":         {"base"},
	"PROCESSES":    {"processes"},
	"LOCAL":        {"local"},
	"REDIS_ADDR":   {"redis", "addr"},
	"REDIS_PREFIX": {"redis", "prefix"},
	"HTTP_ADDR":    {"http", "addr"},
}

// Find returns the first of DefaultFiles present in dir, or "".
func Find(dir string) string {
	for _, name := range DefaultFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads path (skipped when empty), applies SUITEMUX_* overrides from the
// environment and decodes the result over Default.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// JSON is a subset of YAML, so one parser serves both.
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for env, key := range envKeys {
		if v, ok := lookup(EnvPrefix + env); ok {
			set(raw, key, v)
		}
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func set(m map[string]any, key []string, v string) {
	for _, k := range key[:len(key)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[key[len(key)-1]] = v
}

// Validate checks values the decoder cannot.
func (c Config) Validate() error {
	var errs []error
	if c.LoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout))
	}
	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("color must be auto, always or never, got %q", c.Color))
	}
	for i, ch := range c.Children {
		if ch.Location == "" && ch.Label == "" {
			errs = append(errs, fmt.Errorf("children[%d]: location is required", i))
		}
	}
	return errors.Join(errs...)
}
