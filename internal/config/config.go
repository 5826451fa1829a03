package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/mapping"
)

// Config holds the configuration for the runner
type Config struct {
	HTTP       HTTPConfig
	Mapping    MappingConfig
	Store      StoreConfig
	Redis      RedisConfig
	Events     EventsConfig
	Log        LogConfig
	Server     ServerConfig
	Definition string
}

// HTTPConfig configures the shared invoker
type HTTPConfig struct {
	MaxTotal    int
	MaxPerRoute int
	Timeout     time.Duration
	ContentType string
	UserAgent   string
}

// MappingConfig configures output mapping parsing
type MappingConfig struct {
	LegacyColonSplit bool
}

// StoreConfig selects the variable store backend: "memory" or "redis".
// TTL bounds how long an execution's variables are kept after its last
// write; 0 keeps them until deleted.
type StoreConfig struct {
	Backend   string
	KeyPrefix string
	TTL       time.Duration
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EventsConfig configures task audit events
type EventsConfig struct {
	Enabled bool
	Stream  string
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string
	Development bool
}

// ServerConfig configures the HTTP API of cmd/server
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the optional file at path and from
// RESTINVOKE_* environment variables, e.g. RESTINVOKE_HTTP_TIMEOUT=10s.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESTINVOKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			MaxTotal:    v.GetInt("http.max_total"),
			MaxPerRoute: v.GetInt("http.max_per_route"),
			Timeout:     v.GetDuration("http.timeout"),
			ContentType: v.GetString("http.content_type"),
			UserAgent:   v.GetString("http.user_agent"),
		},
		Mapping: MappingConfig{
			LegacyColonSplit: v.GetBool("mapping.legacy_colon_split"),
		},
		Store: StoreConfig{
			Backend:   v.GetString("store.backend"),
			KeyPrefix: v.GetString("store.key_prefix"),
			TTL:       v.GetDuration("store.ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("events.enabled"),
			Stream:  v.GetString("events.stream"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Definition: v.GetString("definition.path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := invoker.DefaultConfig()

	v.SetDefault("http.max_total", defaults.MaxTotal)
	v.SetDefault("http.max_per_route", defaults.MaxPerRoute)
	v.SetDefault("http.timeout", defaults.Timeout)
	v.SetDefault("http.content_type", defaults.ContentType)
	v.SetDefault("http.user_agent", defaults.UserAgent)
	v.SetDefault("mapping.legacy_colon_split", false)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.key_prefix", "restinvoke")
	v.SetDefault("store.ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.stream", "restinvoke:events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("definition.path", "")
}

// Validate rejects settings the runner cannot honour
func (c *Config) Validate() error {
	if c.HTTP.MaxTotal <= 0 {
		return fmt.Errorf("http.max_total must be positive, got %d", c.HTTP.MaxTotal)
	}
	if c.HTTP.MaxPerRoute <= 0 {
		return fmt.Errorf("http.max_per_route must be positive, got %d", c.HTTP.MaxPerRoute)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("store.ttl must not be negative, got %s", c.Store.TTL)
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported store.backend %q", c.Store.Backend)
	}
	return nil
}

// InvokerConfig returns the invoker settings
func (c *Config) InvokerConfig() invoker.Config {
	return invoker.Config{
		MaxTotal:    c.HTTP.MaxTotal,
		MaxPerRoute: c.HTTP.MaxPerRoute,
		Timeout:     c.HTTP.Timeout,
		ContentType: c.HTTP.ContentType,
		UserAgent:   c.HTTP.UserAgent,
	}
}

// SplitMode returns the configured mapping split mode
func (c *Config) SplitMode() mapping.SplitMode {
	if c.Mapping.LegacyColonSplit {
		return mapping.SplitLegacy
	}
	return mapping.SplitFirstColon
}

// NeedsRedis reports whether any configured component uses Redis
func (c *Config) NeedsRedis() bool {
	return c.Store.Backend == "redis" || c.Events.Enabled
}
