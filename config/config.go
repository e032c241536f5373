/*
Package config holds the server configuration file.

PURPOSE:
  One YAML file configures cmd/server. Missing fields fall back to defaults,
  and a missing file is created with the defaults on first run.

EXAMPLE (occurrences.yaml):
  listen: 127.0.0.1:8080
  db_path: occurrences.db
  log_level: info
  max_range_days: 3660
  allowed_origins:
    - http://localhost:5173
  default_calendar: us-federal

FLAGS:
  cmd/server flags (-port, -db, -debug) override the file.

SEE ALSO:
  - cmd/server/main.go: Loading and flag overrides
  - api/handlers.go: MaxRangeDays, DefaultCalendar
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
)

// Config is the top-level server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DBPath is the SQLite file; ":memory:" keeps everything in memory.
	DBPath string `yaml:"db_path"`

	// LogLevel is "info" or "debug".
	LogLevel string `yaml:"log_level"`

	// MaxRangeDays caps the length of an occurrences query.
	MaxRangeDays int `yaml:"max_range_days"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// DefaultCalendar is applied to events without a calendar_id. Empty
	// means no holidays are excluded by default.
	DefaultCalendar string `yaml:"default_calendar"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		DBPath:         "occurrences.db",
		LogLevel:       LevelInfo,
		MaxRangeDays:   3660,
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Normalize fills in missing or invalid values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	switch strings.ToLower(c.LogLevel) {
	case LevelDebug:
		c.LogLevel = LevelDebug
	default:
		c.LogLevel = LevelInfo
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = def.MaxRangeDays
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = def.AllowedOrigins
	}
}

// Debug reports whether debug logging is on.
func (c *Config) Debug() bool { return c.LogLevel == LevelDebug }

// Load reads the YAML file at path. A missing file is created with the
// defaults, which are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			return cfg, Save(path, cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path through a temp file and rename, with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".occurrences-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
