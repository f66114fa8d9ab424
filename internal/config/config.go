// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Poll     PollConfig     `mapstructure:"poll"`
	Server   ServerConfig   `mapstructure:"server"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Store    StoreConfig    `mapstructure:"store"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// BotConfig holds the Telegram credential and the owner allow-list.
type BotConfig struct {
	Token string `mapstructure:"token"`
	// AllowedChats restricts who the bot serves; empty serves everyone.
	AllowedChats []string `mapstructure:"allowed_chats"`
}

// PollConfig governs the watch loop cadence.
type PollConfig struct {
	IntervalSeconds        int  `mapstructure:"interval_seconds"`
	StartupCooldownSeconds int  `mapstructure:"startup_cooldown_seconds"`
	StopWhenDelivered      bool `mapstructure:"stop_when_delivered"`
}

// ServerConfig controls the liveness HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FetchConfig configures both fetch strategies.
type FetchConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	SettleMillis      int     `mapstructure:"settle_millis"`
	HeadlessEnabled   bool    `mapstructure:"headless_enabled"`
	LookupsPerSecond  float64 `mapstructure:"lookups_per_second"`
}

// StoreConfig selects and parameterizes the tracking store backend.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
}

// SnapshotConfig selects where failed-extraction page bodies are archived.
type SnapshotConfig struct {
	Provider string `mapstructure:"provider"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
}

// EventsConfig selects the optional transition-event sink.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OZWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Every key gets a default so environment-only overrides are visible to
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.allowed_chats", []string{})
	v.SetDefault("poll.interval_seconds", 600)
	v.SetDefault("poll.startup_cooldown_seconds", 1800)
	v.SetDefault("poll.stop_when_delivered", false)
	v.SetDefault("server.port", 10000)
	v.SetDefault("fetch.base_url", "https://tracking.ozon.ru")
	v.SetDefault("fetch.user_agent", defaultUserAgent)
	v.SetDefault("fetch.timeout_seconds", 20)
	v.SetDefault("fetch.nav_timeout_seconds", 60)
	v.SetDefault("fetch.settle_millis", 5000)
	v.SetDefault("fetch.headless_enabled", true)
	v.SetDefault("fetch.lookups_per_second", 0.5)
	v.SetDefault("store.provider", "file")
	v.SetDefault("store.path", "tracks.json")
	v.SetDefault("store.dsn", "")
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.dir", "data/snapshots")
	v.SetDefault("snapshot.bucket", "")
	v.SetDefault("events.provider", "none")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces the values the full service needs to run.
func (c Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token must be set")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Store.Provider {
	case "file":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for the file provider")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set for the postgres provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	switch c.Snapshot.Provider {
	case "none", "local":
	case "gcs":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown snapshot provider: %s", c.Snapshot.Provider)
	}
	switch c.Events.Provider {
	case "none":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.Topic == "" {
			return fmt.Errorf("events.project_id and events.topic must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown events provider: %s", c.Events.Provider)
	}
	return nil
}

// PollInterval converts the configured seconds into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// StartupCooldown converts the configured seconds into a duration.
func (c Config) StartupCooldown() time.Duration {
	return time.Duration(c.Poll.StartupCooldownSeconds) * time.Second
}
