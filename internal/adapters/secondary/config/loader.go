// Package config loads clusterauth configuration from YAML files and
// CLUSTERAUTH_ environment variables.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/services"
)

// EnvPrefix prefixes every environment override, e.g. CLUSTERAUTH_SETTINGS_OPEN_TIMEOUT.
const EnvPrefix = "CLUSTERAUTH"

// Policy backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the root of the configuration file.
type Config struct {
	System   SystemConfig   `mapstructure:"system"`
	Settings SettingsConfig `mapstructure:"settings"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Log      LogConfig      `mapstructure:"log"`
}

// SystemConfig describes the managed cluster.
type SystemConfig struct {
	ID              string                  `mapstructure:"id" validate:"required"`
	Name            string                  `mapstructure:"name"`
	Zone            string                  `mapstructure:"zone"`
	HTTPProxy       string                  `mapstructure:"http_proxy" validate:"omitempty,url"`
	Endpoints       []domain.Endpoint       `mapstructure:"endpoints" validate:"required,min=1,dive"`
	Authentications []domain.Authentication `mapstructure:"authentications" validate:"dive"`
}

// SettingsConfig holds provider wide connection settings.
//
// ProbeMetrics opts the prometheus role into a buildinfo request. Without it the
// metrics roles report no_verification.
type SettingsConfig struct {
	HTTPProxy    string        `mapstructure:"http_proxy" validate:"omitempty,url"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout" validate:"gte=0"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	ProbeMetrics bool          `mapstructure:"probe_metrics"`
}

// PolicyConfig selects where continuations, policy events and scan jobs go.
type PolicyConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr       string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB         int           `mapstructure:"redis_db" validate:"gte=0"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	EventQueue      string        `mapstructure:"event_queue"`
	JobQueue        string        `mapstructure:"job_queue"`
	ContinuationTTL time.Duration `mapstructure:"continuation_ttl" validate:"gte=0"`
	ServerHost      string        `mapstructure:"server_host"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// ProviderSettings converts the settings section, filling unset timeouts with defaults.
func (s SettingsConfig) ProviderSettings() services.ProviderSettings {
	out := services.DefaultProviderSettings()
	out.HTTPProxy = s.HTTPProxy
	if s.OpenTimeout > 0 {
		out.OpenTimeout = s.OpenTimeout
	}
	if s.ReadTimeout > 0 {
		out.ReadTimeout = s.ReadTimeout
	}
	return out
}

// Loader reads configuration through viper.
type Loader struct {
	validator *domain.Validator
}

// NewLoader creates a loader.
func NewLoader() *Loader {
	return &Loader{validator: domain.NewValidator()}
}

func setDefaults(v *viper.Viper) {
	defaults := services.DefaultProviderSettings()
	v.SetDefault("settings.http_proxy", "")
	v.SetDefault("settings.open_timeout", defaults.OpenTimeout)
	v.SetDefault("settings.read_timeout", defaults.ReadTimeout)
	v.SetDefault("settings.probe_metrics", false)
	v.SetDefault("policy.backend", BackendMemory)
	v.SetDefault("policy.redis_addr", "")
	v.SetDefault("policy.redis_db", 0)
	v.SetDefault("policy.key_prefix", "clusterauth")
	v.SetDefault("policy.event_queue", "policy:events")
	v.SetDefault("policy.job_queue", "jobs:scan")
	v.SetDefault("policy.continuation_ttl", 24*time.Hour)
	v.SetDefault("policy.server_host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// DecodeHook is the hook chain used to decode configuration values.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		domain.RoleDecodeHook(),
		domain.SecurityProtocolDecodeHook(),
		domain.AuthTypeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Load reads path, applies environment overrides and validates the result.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &errors.ValidationError{
			Field:   "path",
			Value:   path,
			Message: "configuration file path cannot be empty or whitespace",
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("configuration loading canceled: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config file path: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(absPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Validate(cfg); err != nil {
		if details := domain.ConvertValidationErrors(err); len(details) > 0 {
			first := details[0]
			return &errors.ValidationError{Field: first.Field, Value: first.Value, Message: first.Message}
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := domain.NewManagedSystem(cfg.System.ID, cfg.System.Name, cfg.System.Endpoints, cfg.System.Authentications); err != nil {
		return &errors.ValidationError{Field: "system", Value: cfg.System.ID, Message: err.Error()}
	}
	return nil
}
