// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Known provider names for the optional subsystems.
const (
	ProviderNone     = "none"
	ProviderMemory   = "memory"
	ProviderLocal    = "local"
	ProviderGCS      = "gcs"
	ProviderPostgres = "postgres"
	ProviderPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Pacing    PacingConfig    `mapstructure:"pacing"`
	Search    SearchConfig    `mapstructure:"search"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the plain HTTP fetch strategy.
type HTTPConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgents     []string `mapstructure:"user_agents"`
}

// BrowserConfig configures the headless rendering strategy.
type BrowserConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	MaxUses           int    `mapstructure:"max_uses"`
	BreakerThreshold  int    `mapstructure:"breaker_threshold"`
	BlockAssets       bool   `mapstructure:"block_assets"`
	UserAgent         string `mapstructure:"user_agent"`
}

// PipelineConfig governs strategy-chain and batching behavior.
type PipelineConfig struct {
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`
	MinTextLen            int `mapstructure:"min_text_len"`
	DefaultMaxResults     int `mapstructure:"default_max_results"`
	PageTTLSeconds        int `mapstructure:"page_ttl_seconds"`
	SearchTTLSeconds      int `mapstructure:"search_ttl_seconds"`
	SyntheticTTLSeconds   int `mapstructure:"synthetic_ttl_seconds"`
	BatchSize             int `mapstructure:"batch_size"`
	BatchPauseMs          int `mapstructure:"batch_pause_ms"`
	MaxConcurrency        int `mapstructure:"max_concurrency"`
}

// CacheConfig controls the in-memory TTL cache.
type CacheConfig struct {
	SweepSeconds int `mapstructure:"sweep_seconds"`
}

// PacingConfig bounds per-domain request rates.
type PacingConfig struct {
	DefaultRPS   float64 `mapstructure:"default_rps"`
	DefaultBurst int     `mapstructure:"default_burst"`
}

// SearchConfig orders the search provider chain.
type SearchConfig struct {
	Providers []string `mapstructure:"providers"`
}

// ArchiveConfig selects where produced results are recorded.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// SnapshotConfig selects where raw markup snapshots go.
type SnapshotConfig struct {
	Provider    string `mapstructure:"provider"`
	Dir         string `mapstructure:"dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PublisherConfig selects the fetch-event publisher.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBINTEL")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("browser.max_uses", 50)
	v.SetDefault("browser.breaker_threshold", 3)
	v.SetDefault("browser.block_assets", true)
	v.SetDefault("pipeline.default_timeout_seconds", 20)
	v.SetDefault("pipeline.min_text_len", 50)
	v.SetDefault("pipeline.default_max_results", 10)
	v.SetDefault("pipeline.page_ttl_seconds", 900)
	v.SetDefault("pipeline.search_ttl_seconds", 600)
	v.SetDefault("pipeline.synthetic_ttl_seconds", 120)
	v.SetDefault("pipeline.batch_size", 5)
	v.SetDefault("pipeline.batch_pause_ms", 500)
	v.SetDefault("pipeline.max_concurrency", 3)
	v.SetDefault("cache.sweep_seconds", 60)
	v.SetDefault("pacing.default_rps", 2.0)
	v.SetDefault("pacing.default_burst", 2)
	v.SetDefault("search.providers", []string{"duckduckgo", "bing", "startpage"})
	v.SetDefault("archive.provider", ProviderNone)
	v.SetDefault("snapshot.provider", ProviderNone)
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("snapshot.content_type", "text/html; charset=utf-8")
	v.SetDefault("publisher.provider", ProviderNone)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Browser.Enabled && c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0 when browser is enabled")
	}
	if c.Browser.Enabled && c.Browser.BreakerThreshold < 0 {
		return fmt.Errorf("browser.breaker_threshold must be >= 0")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be > 0")
	}
	if c.Pipeline.MaxConcurrency <= 0 {
		return fmt.Errorf("pipeline.max_concurrency must be > 0")
	}
	if len(c.Search.Providers) == 0 {
		return fmt.Errorf("search.providers must not be empty")
	}
	for _, name := range c.Search.Providers {
		switch name {
		case "duckduckgo", "bing", "startpage":
		default:
			return fmt.Errorf("search.providers: unknown provider %q", name)
		}
	}
	switch c.Archive.Provider {
	case ProviderNone, ProviderMemory:
	case ProviderPostgres:
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("archive.provider: unknown provider %q", c.Archive.Provider)
	}
	switch c.Snapshot.Provider {
	case ProviderNone, ProviderMemory:
	case ProviderLocal:
		if c.Snapshot.Dir == "" {
			return fmt.Errorf("snapshot.dir must be set for the local provider")
		}
	case ProviderGCS:
		if c.Snapshot.GCSBucket == "" {
			return fmt.Errorf("snapshot.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("snapshot.provider: unknown provider %q", c.Snapshot.Provider)
	}
	switch c.Publisher.Provider {
	case ProviderNone, ProviderMemory:
	case ProviderPubSub:
		if c.Publisher.ProjectID == "" || c.Publisher.TopicName == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_name must be set for the pubsub provider")
		}
	default:
		return fmt.Errorf("publisher.provider: unknown provider %q", c.Publisher.Provider)
	}
	return nil
}

// HTTPTimeout returns the HTTP fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout returns the browser navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}
