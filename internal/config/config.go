// Package config provides configuration loading for the AgriConnect
// client.
package config

import (
	"strings"
	"time"
)

// Config is the top-level configuration for the client.
type Config struct {
	// Backend configures the authentication/storage backend.
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`

	// AI configures the generative-AI proxy.
	AI AIConfig `yaml:"ai" mapstructure:"ai"`

	// Twilio configures the Verify service for two-factor codes.
	// Optional: without credentials, two-factor commands are disabled.
	Twilio TwilioConfig `yaml:"twilio" mapstructure:"twilio"`

	// Storage selects the device key-value store backend.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Cache configures the cache-first fetcher.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Session configures session validation.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// LogLevel sets the slog level: debug, info, warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// BackendConfig locates the auth backend.
type BackendConfig struct {
	// URL is the backend project base URL.
	URL string `yaml:"url" mapstructure:"url" validate:"required,url"`
	// AnonKey is the publishable API key sent with every request.
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key" validate:"required"`
}

// AIConfig locates the generative-AI proxy.
type AIConfig struct {
	// ProxyURL is the AI proxy function URL. Defaults to the backend
	// URL plus /functions/v1/gemini-proxy.
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url" validate:"omitempty,url"`
}

// TwilioConfig holds the Verify credentials for email codes.
type TwilioConfig struct {
	AccountSID       string `yaml:"account_sid" mapstructure:"account_sid"`
	AuthToken        string `yaml:"auth_token" mapstructure:"auth_token"`
	VerifyServiceSID string `yaml:"verify_service_sid" mapstructure:"verify_service_sid"`
}

// Configured reports whether all Verify credentials are present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.VerifyServiceSID != ""
}

// StorageConfig selects the key-value store backend.
// Valid values: "memory", "file://<absolute path>", or
// "sqlite://<absolute path>".
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend" validate:"required,storage_backend"`
}

// Path returns the filesystem path of a file:// or sqlite:// backend.
func (c StorageConfig) Path() string {
	for _, prefix := range []string{"file://", "sqlite://"} {
		if strings.HasPrefix(c.Backend, prefix) {
			return strings.TrimPrefix(c.Backend, prefix)
		}
	}
	return ""
}

// CacheConfig configures the cache-first fetcher.
type CacheConfig struct {
	// MaxEntries bounds the persisted cache entry count.
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" validate:"omitempty,min=1"`
}

// SessionConfig configures session validation.
type SessionConfig struct {
	// ExpiryBuffer is the remaining-lifetime buffer at read time, as a
	// duration string (e.g. "5s"). Minimum one second.
	ExpiryBuffer string `yaml:"expiry_buffer" mapstructure:"expiry_buffer"`
	// GuardInterval is how often the background guard re-validates the
	// session (e.g. "5m"). Zero disables the guard.
	GuardInterval string `yaml:"guard_interval" mapstructure:"guard_interval"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 128
	}
	if c.AI.ProxyURL == "" && c.Backend.URL != "" {
		c.AI.ProxyURL = strings.TrimRight(c.Backend.URL, "/") + "/functions/v1/gemini-proxy"
	}
	if c.Session.ExpiryBuffer == "" {
		c.Session.ExpiryBuffer = "1s"
	}
	if c.Session.GuardInterval == "" {
		c.Session.GuardInterval = "5m"
	}
}

// ExpiryBufferDuration parses the expiry buffer, falling back to one
// second on a malformed value.
func (c *Config) ExpiryBufferDuration() time.Duration {
	d, err := time.ParseDuration(c.Session.ExpiryBuffer)
	if err != nil || d < time.Second {
		return time.Second
	}
	return d
}

// GuardIntervalDuration parses the guard interval. Zero means the
// guard is disabled.
func (c *Config) GuardIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Session.GuardInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
