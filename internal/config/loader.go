package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and
// environment variables. If configFile is empty, it searches for
// agriclient.yaml/.yml in standard locations.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location. ReadInConfig
		// then returns ConfigFileNotFoundError, handled gracefully by
		// callers so pure env-var configuration works.
		viper.SetConfigName("agriclient")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: AGRICLIENT_BACKEND_URL etc.
	viper.SetEnvPrefix("AGRICLIENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an agriclient config
// file with an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".agriclient"),
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "agriclient"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all config keys for environment variable
// support, so nested values can be overridden individually.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("backend.url")
	_ = viper.BindEnv("backend.anon_key")

	_ = viper.BindEnv("ai.proxy_url")

	_ = viper.BindEnv("twilio.account_sid")
	_ = viper.BindEnv("twilio.auth_token")
	_ = viper.BindEnv("twilio.verify_service_sid")

	_ = viper.BindEnv("storage.backend")
	_ = viper.BindEnv("cache.max_entries")

	_ = viper.BindEnv("session.expiry_buffer")
	_ = viper.BindEnv("session.guard_interval")

	_ = viper.BindEnv("log_level")
}

// LoadConfig reads the configuration file, applies environment
// overrides and defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the loaded configuration file, or
// an empty string in env-vars-only mode.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
