// Package config loads process configuration via viper and the rule files
// that drive categorization, suppression, notification routing and
// escalation. Rules are loaded once at startup; the registries they feed are
// static for the process lifetime apart from explicit admin additions.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the argus service
type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Storage struct {
		// SQLitePath is the alert database path (ARGUS_STORAGE_SQLITE_PATH).
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"storage"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Notifications struct {
		SlackWebhookURL string            `mapstructure:"slack_webhook_url"`
		WebhookURL      string            `mapstructure:"webhook_url"`
		WebhookHeaders  map[string]string `mapstructure:"webhook_headers"`
		SMTPHost        string            `mapstructure:"smtp_host"`
		SMTPPort        int               `mapstructure:"smtp_port"`
		FromAddress     string            `mapstructure:"from_address"`
		RatePerSecond   float64           `mapstructure:"rate_per_second"`
	} `mapstructure:"notifications"`

	Escalation struct {
		// SweepInterval in seconds; 0 disables the periodic sweep (sweeps
		// can still be triggered via the API).
		SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
		// AutoResolveHours is the staleness threshold; 0 disables the sweep.
		AutoResolveHours int `mapstructure:"auto_resolve_hours"`
	} `mapstructure:"escalation"`

	// RulesFile points at the YAML rule definitions; empty means built-in
	// defaults only.
	RulesFile string `mapstructure:"rules_file"`

	Logging struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"logging"`
}

// Load reads configuration from the given file (optional) plus ARGUS_*
// environment variables, applying defaults for anything unset.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.sqlite_path", "./data/argus.db")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("notifications.smtp_port", 25)
	v.SetDefault("notifications.rate_per_second", 5.0)
	v.SetDefault("escalation.sweep_interval_seconds", 60)
	v.SetDefault("escalation.auto_resolve_hours", 24)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetEnvPrefix("ARGUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	return &cfg, nil
}
