// Package config loads relay settings from an optional file and the
// environment. Environment variables always win over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            int           `mapstructure:"port"`
	DefaultModel    string        `mapstructure:"default_model"`
	HostedBaseURL   string        `mapstructure:"hosted_base_url"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	CredentialTTL   time.Duration `mapstructure:"credential_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	MaxMessages     int           `mapstructure:"max_messages"`
	MaxChars        int           `mapstructure:"max_chars"`
	ProvidersTable  string        `mapstructure:"providers_table"`
	ParamPrefix     string        `mapstructure:"param_prefix"`
	LogLevel        string        `mapstructure:"log_level"`
	Auth            AuthConfig    `mapstructure:"auth"`

	// DefaultModelPinned is true when default_model came from the config
	// file or FINE_TUNED_MODEL rather than the built-in default.
	DefaultModelPinned bool `mapstructure:"-"`
}

type AuthConfig struct {
	Required  bool   `mapstructure:"required"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

var defaults = map[string]any{
	"port":             3000,
	"default_model":    "gpt-4o-mini",
	"hosted_base_url":  "https://api.openai.com/v1",
	"provider_timeout": "30s",
	"credential_ttl":   "24h",
	"sweep_interval":   "10m",
	"max_messages":     100,
	"max_chars":        8000,
	"providers_table":  "",
	"param_prefix":     "",
	"log_level":        "info",
	"auth.required":    false,
	"auth.jwt_secret":  "",
	"auth.issuer":      "",
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"port":             "PORT",
	"default_model":    "FINE_TUNED_MODEL",
	"hosted_base_url":  "HOSTED_BASE_URL",
	"provider_timeout": "PROVIDER_TIMEOUT",
	"credential_ttl":   "CREDENTIAL_TTL",
	"sweep_interval":   "SWEEP_INTERVAL",
	"max_messages":     "MAX_MESSAGES",
	"max_chars":        "MAX_CHARS",
	"providers_table":  "PROVIDERS_TABLE",
	"param_prefix":     "PARAM_PREFIX",
	"log_level":        "LOG_LEVEL",
	"auth.required":    "AUTH_REQUIRED",
	"auth.jwt_secret":  "JWT_SECRET",
	"auth.issuer":      "JWT_ISSUER",
}

// Load reads path when it is non-empty, then overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.DefaultModelPinned = explicit(v, "default_model")
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// explicit reports whether key was set by the file or its bound env var.
func explicit(v *viper.Viper, key string) bool {
	if v.InConfig(key) {
		return true
	}
	return strings.TrimSpace(os.Getenv(envBindings[key])) != ""
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("provider_timeout must be positive"))
	}
	if c.CredentialTTL <= 0 {
		errs = append(errs, errors.New("credential_ttl must be positive"))
	}
	if c.MaxMessages <= 0 || c.MaxChars <= 0 {
		errs = append(errs, errors.New("max_messages and max_chars must be positive"))
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" && c.ParamPrefix == "" {
		errs = append(errs, errors.New("auth.required needs JWT_SECRET or PARAM_PREFIX"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
