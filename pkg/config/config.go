// Package config loads autopilot settings from a YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/autopilot/pkg/adapters/process"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "autopilot.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Actuator backends.
const (
	ActuatorSimulated = "simulated"
	ActuatorXdotool   = "xdotool"
)

// Config is the full application configuration.
type Config struct {
	UnitsDir    string `yaml:"units_dir" json:"units_dir"`
	TemplateDir string `yaml:"template_dir" json:"template_dir"`
	LogLevel    string `yaml:"log_level" json:"log_level"`

	Store    StoreConfig    `yaml:"store" json:"store"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Actuator ActuatorConfig `yaml:"actuator" json:"actuator"`

	// Commands extends the process allow-list (e.g. a custom xdotool path or
	// the external image matcher).
	Commands []process.CommandConfig `yaml:"commands" json:"commands"`
}

// StoreConfig selects where execution status lives.
type StoreConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Path    string      `yaml:"path" json:"path"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig configures the redis status store.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	// TTL is a Go duration string ("24h"). Empty means no expiry.
	TTL string `yaml:"ttl" json:"ttl"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// ActuatorConfig selects and tunes the device backend.
type ActuatorConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Failsafe *bool  `yaml:"failsafe" json:"failsafe"`
	// Screen size of the simulated backend.
	ScreenWidth  int `yaml:"screen_width" json:"screen_width"`
	ScreenHeight int `yaml:"screen_height" json:"screen_height"`
}

// FailsafeEnabled reports the failsafe setting, on unless explicitly disabled.
func (a ActuatorConfig) FailsafeEnabled() bool {
	return a.Failsafe == nil || *a.Failsafe
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.UnitsDir == "" {
		c.UnitsDir = "units"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(".autopilot", "status")
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Actuator.Backend == "" {
		c.Actuator.Backend = ActuatorSimulated
	}
	if c.Actuator.ScreenWidth == 0 {
		c.Actuator.ScreenWidth = 1920
	}
	if c.Actuator.ScreenHeight == 0 {
		c.Actuator.ScreenHeight = 1080
	}
}

// Validate checks enumerations and durations.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Actuator.Backend {
	case ActuatorSimulated, ActuatorXdotool:
	default:
		return fmt.Errorf("unknown actuator backend %q", c.Actuator.Backend)
	}
	if _, err := c.Store.Redis.TTLDuration(); err != nil {
		return err
	}
	if c.Actuator.ScreenWidth < 0 || c.Actuator.ScreenHeight < 0 {
		return fmt.Errorf("screen size must not be negative")
	}
	return nil
}

// TTLDuration parses TTL. Empty means zero (no expiry).
func (r RedisConfig) TTLDuration() (time.Duration, error) {
	if r.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid redis ttl %q: %w", r.TTL, err)
	}
	return d, nil
}

// Load reads a configuration file (YAML or JSON, by extension) and fills in
// defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
