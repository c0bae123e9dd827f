// Package config loads the TOML configuration file shared by every command.
//
// The file carries everything that is deployment-specific: where the manager
// directory lives, which cache backend to use, and the endpoints for the
// stats and audit jobs. Connection credentials for the managers themselves
// are never in this file; they come from the directory store.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "FLOWTRACE_CONFIG"

// Config is the root of the configuration file.
type Config struct {
	// Environment scopes cache keys so deployments sharing a Redis do not
	// serve each other's traces. Empty disables scoping.
	Environment string `toml:"environment"`

	Directory DirectoryConfig `toml:"directory"`
	Admin     AdminConfig     `toml:"admin"`
	Cache     CacheConfig     `toml:"cache"`
	Server    ServerConfig    `toml:"server"`
	Stats     StatsConfig     `toml:"stats"`
	Audit     AuditConfig     `toml:"audit"`
}

// DirectoryConfig selects the manager directory backing store. When DSN is
// set the Postgres directory is used; otherwise the static manager list.
type DirectoryConfig struct {
	DSN      string          `toml:"dsn"`
	Managers []ManagerConfig `toml:"managers"`
}

// ManagerConfig is one statically configured manager connection.
type ManagerConfig struct {
	Name     string `toml:"name"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Channel  string `toml:"channel"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// AdminConfig tunes the administrative query client.
type AdminConfig struct {
	// Timeout bounds each administrative command. Zero uses the client
	// default.
	Timeout duration `toml:"timeout"`
}

// CacheConfig selects the trace cache backend.
type CacheConfig struct {
	// Backend is "file", "redis", or "none".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory; defaults under the user cache dir.
	Dir string `toml:"dir"`
	// TTL overrides the default trace TTL when positive.
	TTL duration `toml:"ttl"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StatsConfig configures the statistics collector job.
type StatsConfig struct {
	// PushgatewayURL is where per-manager metrics are pushed.
	PushgatewayURL string `toml:"pushgateway_url"`
	// Job is the Pushgateway job name.
	Job string `toml:"job"`
	// Workers bounds how many managers are scraped concurrently.
	Workers int `toml:"workers"`
}

// AuditConfig configures the queue usage audit job.
type AuditConfig struct {
	// Store is "postgres" or "mongo".
	Store       string `toml:"store"`
	PostgresDSN string `toml:"postgres_dsn"`
	MongoURI    string `toml:"mongo_uri"`
	MongoDB     string `toml:"mongo_database"`
	// Workers bounds how many managers are audited concurrently.
	Workers int `toml:"workers"`
}

// duration lets TOML carry values like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Cache:  CacheConfig{Backend: "file"},
		Server: ServerConfig{Addr: ":8080"},
		Stats:  StatsConfig{Job: "mq_stats", Workers: 4},
		Audit:  AuditConfig{Store: "postgres", Workers: 4},
	}
}

// DefaultPath returns the config file location: $FLOWTRACE_CONFIG if set,
// otherwise flowtrace/config.toml under the user config dir.
func DefaultPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "flowtrace.toml"
	}
	return filepath.Join(base, "flowtrace", "config.toml")
}

// Load reads the config file at path, layered over the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations no command could run with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "cache backend must be file, redis, or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "cache backend redis requires redis_addr")
	}
	switch c.Audit.Store {
	case "", "postgres", "mongo":
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "audit store must be postgres or mongo, got %q", c.Audit.Store)
	}
	for _, m := range c.Directory.Managers {
		if m.Name == "" || m.Host == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig, "static manager entries need name and host")
		}
	}
	return nil
}

// CacheDir returns the directory for the file cache backend, defaulting
// under the user cache dir.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ".flowtrace-cache"
	}
	return filepath.Join(base, "flowtrace")
}

// TraceTTL returns the configured trace TTL, or zero to use the cache
// package default.
func (c *Config) TraceTTL() time.Duration {
	return c.Cache.TTL.Duration
}

// AdminTimeout returns the configured admin command timeout.
func (c *Config) AdminTimeout() time.Duration {
	return c.Admin.Timeout.Duration
}
