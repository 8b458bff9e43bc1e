// Package config handles configuration loading for tickerpulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TICKERPULSE"

// Refresh and message-count bounds.
const (
	MinRefreshIntervalSec = 60
	MaxMessageCount       = 100
)

// Config represents the complete application configuration.
type Config struct {
	Discord    DiscordConfig    `mapstructure:"discord"    yaml:"discord"    json:"discord"`
	Feeds      FeedsConfig      `mapstructure:"feeds"      yaml:"feeds"      json:"feeds"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary" yaml:"vocabulary" json:"vocabulary"`
	Refresh    RefreshConfig    `mapstructure:"refresh"    yaml:"refresh"    json:"refresh"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"   yaml:"analysis"   json:"analysis"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"        json:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"    json:"logging"`
}

// DiscordConfig holds the Discord message source settings.
type DiscordConfig struct {
	Token             string   `mapstructure:"token"               yaml:"token"               json:"token"`
	APIBaseURL        string   `mapstructure:"api_base_url"        yaml:"api_base_url"        json:"api_base_url"`
	ChannelIDs        []string `mapstructure:"channel_ids"         yaml:"channel_ids"         json:"channel_ids"`
	MessageCount      int      `mapstructure:"message_count"       yaml:"message_count"       json:"message_count"`
	RequestsPerSecond int      `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
}

// FeedsConfig lists RSS/Atom feeds used as additional message sources.
type FeedsConfig struct {
	URLs []string `mapstructure:"urls" yaml:"urls" json:"urls"`
}

// VocabularyConfig controls loading of the extended ticker list.
type VocabularyConfig struct {
	Source   string `mapstructure:"source"   yaml:"source"   json:"source"`   // URL or file path
	Blocking bool   `mapstructure:"blocking" yaml:"blocking" json:"blocking"` // wait for the load before the first run
}

// RefreshConfig controls the auto-refresh scheduler.
type RefreshConfig struct {
	Enabled        bool `mapstructure:"enabled"          yaml:"enabled"          json:"enabled"`
	IntervalSec    int  `mapstructure:"interval_sec"     yaml:"interval_sec"     json:"interval_sec"`
	MinIntervalSec int  `mapstructure:"min_interval_sec" yaml:"min_interval_sec" json:"min_interval_sec"`
}

// AnalysisConfig holds analysis engine settings.
type AnalysisConfig struct {
	DefaultTimeframe string `mapstructure:"default_timeframe" yaml:"default_timeframe" json:"default_timeframe"`
	CacheTTL         int    `mapstructure:"cache_ttl"         yaml:"cache_ttl"         json:"cache_ttl"`         // seconds
	FetchTimeoutSec  int    `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec" json:"fetch_timeout_sec"` // seconds
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	ServeUI     bool     `mapstructure:"serve_ui"     yaml:"serve_ui"     json:"serve_ui"` // embedded dashboard at /
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.tickerpulse/config.yaml (home directory)
//  3. /etc/tickerpulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: TICKERPULSE_<SECTION>_<KEY>, e.g., TICKERPULSE_DISCORD_TOKEN
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".tickerpulse"))
	v.AddConfigPath("/etc/tickerpulse")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Default returns the configuration with every default applied and no
// file or environment input.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Validate()
	return &cfg
}

// WriteDefault writes the default configuration as YAML to path. An
// existing file is left untouched unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)
	cfg.Validate()
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Discord defaults
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.api_base_url", "https://discord.com/api/v9")
	v.SetDefault("discord.channel_ids", []string{})
	v.SetDefault("discord.message_count", 50)
	v.SetDefault("discord.requests_per_second", 1)

	// Feeds
	v.SetDefault("feeds.urls", []string{})

	// Vocabulary
	v.SetDefault("vocabulary.source", "tickers.txt")
	v.SetDefault("vocabulary.blocking", true)

	// Refresh defaults (opt-in)
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.interval_sec", 300)
	v.SetDefault("refresh.min_interval_sec", MinRefreshIntervalSec)

	// Analysis defaults
	v.SetDefault("analysis.default_timeframe", "all")
	v.SetDefault("analysis.cache_ttl", 3600) // 1 hour
	v.SetDefault("analysis.fetch_timeout_sec", 30)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.serve_ui", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate clamps out-of-range values in place.
func (c *Config) Validate() {
	switch {
	case c.Discord.MessageCount < 1:
		c.Discord.MessageCount = 1
	case c.Discord.MessageCount > MaxMessageCount:
		c.Discord.MessageCount = MaxMessageCount
	}
	if c.Discord.RequestsPerSecond < 1 {
		c.Discord.RequestsPerSecond = 1
	}
	if c.Refresh.MinIntervalSec < MinRefreshIntervalSec {
		c.Refresh.MinIntervalSec = MinRefreshIntervalSec
	}
	if c.Refresh.IntervalSec < c.Refresh.MinIntervalSec {
		c.Refresh.IntervalSec = c.Refresh.MinIntervalSec
	}
	if c.Analysis.FetchTimeoutSec < 1 {
		c.Analysis.FetchTimeoutSec = 30
	}
	c.Analysis.DefaultTimeframe = strings.ToLower(strings.TrimSpace(c.Analysis.DefaultTimeframe))
	c.Discord.ChannelIDs = compact(c.Discord.ChannelIDs)
	c.Feeds.URLs = compact(c.Feeds.URLs)
}

// RefreshInterval returns the auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSec) * time.Second
}

// MinRefreshInterval returns the minimum gap between two runs.
func (c *Config) MinRefreshInterval() time.Duration {
	return time.Duration(c.Refresh.MinIntervalSec) * time.Second
}

// FetchTimeout returns the per-run fetch deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Analysis.FetchTimeoutSec) * time.Second
}

// FallbackTTL returns how long a last good batch may be reused.
func (c *Config) FallbackTTL() time.Duration {
	return time.Duration(c.Analysis.CacheTTL) * time.Second
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if token := os.Getenv(EnvPrefix + "_DISCORD_TOKEN"); token != "" {
		cfg.Discord.Token = token
	}
}

// compact trims entries and drops blanks. Comma-joined entries coming
// from environment variables are split.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
