package config

import (
	"os"

	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "MTI...xyz"
}

// CheckAPIKeys returns the status of all credentials.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Discord Token", cfg.Discord.Token, EnvPrefix+"_DISCORD_TOKEN"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:   name,
		IsSet:  value != "",
		Source: KeySourceNone,
	}
	if value == "" {
		return status
	}
	if os.Getenv(envVar) == value {
		status.Source = KeySourceEnv
	} else {
		status.Source = KeySourceConfig
	}
	status.Masked = utils.MaskSecret(value)
	return status
}

// Masked returns a copy of cfg safe to show to users.
func (c *Config) Masked() Config {
	out := *c
	if out.Discord.Token != "" {
		out.Discord.Token = utils.MaskSecret(out.Discord.Token)
	}
	return out
}
