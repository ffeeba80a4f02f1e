package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/andywolf/agenda/internal/logging"
	"github.com/andywolf/agenda/internal/matcher"
	"github.com/andywolf/agenda/internal/store"
)

// Config represents the full agenda configuration
type Config struct {
	Agent     string        `mapstructure:"agent"`
	Store     StoreConfig   `mapstructure:"store"`
	TasksFile string        `mapstructure:"tasks_file"`
	Events    EventsConfig  `mapstructure:"events"`
	Log       LogConfig     `mapstructure:"log"`
	Matcher   MatcherConfig `mapstructure:"matcher"`
}

// StoreConfig selects where priorities are persisted
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // file or sqlite
	Path    string `mapstructure:"path"`    // directory for file, database file for sqlite
	Format  string `mapstructure:"format"`  // yaml, json or toml (file backend only)
}

// EventsConfig controls the JSONL decision log
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MatcherConfig contains trigger matching settings
type MatcherConfig struct {
	Mode string `mapstructure:"mode"`
}

// Defaults
const (
	DefaultAgent     = "default"
	DefaultStoreDir  = ".agenda"
	DefaultSQLiteDB  = "agenda.db"
	DefaultEventsDir = ".agenda/events"
)

// EnvPrefix prefixes every environment variable agenda reads.
const EnvPrefix = "AGENDA"

var envKeys = []string{
	"agent",
	"store.backend", "store.path", "store.format",
	"tasks_file",
	"events.enabled", "events.dir",
	"log.level", "log.format",
	"matcher.mode",
}

// BindEnv makes every config key settable from the environment, e.g.
// AGENDA_STORE_BACKEND for store.backend. Unmarshal only sees environment
// values for keys bound this way.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration from the given viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Agent == "" {
		cfg.Agent = DefaultAgent
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = store.BackendFile
	}

	if cfg.Store.Path == "" {
		switch cfg.Store.Backend {
		case store.BackendSQLite:
			cfg.Store.Path = filepath.Join(DefaultStoreDir, DefaultSQLiteDB)
		default:
			cfg.Store.Path = DefaultStoreDir
		}
	}

	if cfg.Store.Format == "" {
		cfg.Store.Format = string(store.FormatYAML)
	}

	if cfg.Events.Dir == "" {
		cfg.Events.Dir = DefaultEventsDir
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Matcher.Mode == "" {
		cfg.Matcher.Mode = string(matcher.ModeWord)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Agent == "" {
		return fmt.Errorf("agent is required")
	}

	validBackends := map[string]bool{store.BackendFile: true, store.BackendSQLite: true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (must be file or sqlite)", c.Store.Backend)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	if _, err := store.ParseFormat(c.Store.Format); err != nil {
		return fmt.Errorf("invalid store format: %w", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	validFormats := map[string]bool{"console": true, "json": true, "auto": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be console, json or auto)", c.Log.Format)
	}

	if _, err := matcher.ParseMode(c.Matcher.Mode); err != nil {
		return fmt.Errorf("invalid matcher mode: %w", err)
	}

	if c.Events.Enabled && c.Events.Dir == "" {
		return fmt.Errorf("events dir is required when events are enabled")
	}

	return nil
}

// OpenStore opens the configured priority store
func (c *Config) OpenStore() (store.Store, error) {
	format, err := store.ParseFormat(c.Store.Format)
	if err != nil {
		return nil, err
	}
	return store.Open(c.Store.Backend, c.Store.Path, format)
}

// LoggingConfig returns the logger settings
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format}
}
