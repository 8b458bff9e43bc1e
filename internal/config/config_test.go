package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the overrides that would interfere with defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, e := range []string{
		"TICKERPULSE_DISCORD_TOKEN",
		"TICKERPULSE_DISCORD_CHANNEL_IDS",
		"TICKERPULSE_API_PORT",
		"TICKERPULSE_REFRESH_INTERVAL_SEC",
	} {
		t.Setenv(e, "")
	}
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Discord.Token)
	assert.Equal(t, "https://discord.com/api/v9", cfg.Discord.APIBaseURL)
	assert.Empty(t, cfg.Discord.ChannelIDs)
	assert.Equal(t, 50, cfg.Discord.MessageCount)
	assert.Equal(t, 1, cfg.Discord.RequestsPerSecond)

	assert.Empty(t, cfg.Feeds.URLs)

	assert.Equal(t, "tickers.txt", cfg.Vocabulary.Source)
	assert.True(t, cfg.Vocabulary.Blocking)

	assert.False(t, cfg.Refresh.Enabled)
	assert.Equal(t, 300, cfg.Refresh.IntervalSec)
	assert.Equal(t, 60, cfg.Refresh.MinIntervalSec)

	assert.Equal(t, "all", cfg.Analysis.DefaultTimeframe)
	assert.Equal(t, 3600, cfg.Analysis.CacheTTL)
	assert.Equal(t, 30, cfg.Analysis.FetchTimeoutSec)

	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.API.CORSOrigins)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "test_config.yaml")
	content := []byte(`
discord:
  token: "file-token-1234567890"
  channel_ids: ["111", " 222 ", ""]
  message_count: 250
feeds:
  urls:
    - https://example.com/markets.rss
vocabulary:
  source: https://example.com/tickers.txt
  blocking: false
refresh:
  enabled: true
  interval_sec: 10
analysis:
  default_timeframe: " 4H "
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	require.NoError(t, os.WriteFile(cfgPath, content, 0o644))

	cfg, err := LoadFromFile(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "file-token-1234567890", cfg.Discord.Token)
	assert.Equal(t, []string{"111", "222"}, cfg.Discord.ChannelIDs)
	assert.Equal(t, MaxMessageCount, cfg.Discord.MessageCount, "clamped")
	assert.Equal(t, []string{"https://example.com/markets.rss"}, cfg.Feeds.URLs)
	assert.Equal(t, "https://example.com/tickers.txt", cfg.Vocabulary.Source)
	assert.False(t, cfg.Vocabulary.Blocking)
	assert.True(t, cfg.Refresh.Enabled)
	assert.Equal(t, MinRefreshIntervalSec, cfg.Refresh.IntervalSec, "raised to minimum")
	assert.Equal(t, "4h", cfg.Analysis.DefaultTimeframe)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICKERPULSE_DISCORD_TOKEN", "env-token-abcdefghij")
	t.Setenv("TICKERPULSE_DISCORD_CHANNEL_IDS", "1,2")
	t.Setenv("TICKERPULSE_API_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token-abcdefghij", cfg.Discord.Token)
	assert.Equal(t, []string{"1", "2"}, cfg.Discord.ChannelIDs)
	assert.Equal(t, 7070, cfg.API.Port)
}

func TestValidateClamps(t *testing.T) {
	cfg := &Config{}
	cfg.Discord.MessageCount = -3
	cfg.Refresh.IntervalSec = 5
	cfg.Validate()

	assert.Equal(t, 1, cfg.Discord.MessageCount)
	assert.Equal(t, 1, cfg.Discord.RequestsPerSecond)
	assert.Equal(t, MinRefreshIntervalSec, cfg.Refresh.MinIntervalSec)
	assert.Equal(t, MinRefreshIntervalSec, cfg.Refresh.IntervalSec)
	assert.Equal(t, 30, cfg.Analysis.FetchTimeoutSec)
}

func TestDurations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval())
	assert.Equal(t, time.Minute, cfg.MinRefreshInterval())
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, time.Hour, cfg.FallbackTTL())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

// ── WriteDefault ──

func TestWriteDefaultRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(path, false)
	assert.Error(t, err, "refuses to overwrite")
	assert.NoError(t, WriteDefault(path, true))
}

// ── Keys ──

func TestCheckAPIKeysEmpty(t *testing.T) {
	clearEnv(t)
	keys := CheckAPIKeys(&Config{})
	require.Len(t, keys, 1)
	assert.False(t, keys[0].IsSet)
	assert.Equal(t, KeySourceNone, keys[0].Source)
	assert.Empty(t, keys[0].Masked)
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	clearEnv(t)
	cfg := &Config{Discord: DiscordConfig{Token: "MTIzNDU2Nzg5.abc.xyz"}}

	keys := CheckAPIKeys(cfg)
	assert.True(t, keys[0].IsSet)
	assert.Equal(t, KeySourceConfig, keys[0].Source)
	assert.Equal(t, "MTI...xyz", keys[0].Masked)
}

func TestCheckAPIKeysFromEnv(t *testing.T) {
	t.Setenv("TICKERPULSE_DISCORD_TOKEN", "env-token-abcdefghij")
	cfg, err := Load()
	require.NoError(t, err)

	keys := CheckAPIKeys(cfg)
	assert.Equal(t, KeySourceEnv, keys[0].Source)
	assert.Equal(t, "env...hij", keys[0].Masked)
}

func TestMaskedConfig(t *testing.T) {
	cfg := &Config{Discord: DiscordConfig{Token: "short"}}
	masked := cfg.Masked()
	assert.Equal(t, "***", masked.Discord.Token)
	assert.Equal(t, "short", cfg.Discord.Token, "original untouched")
}
