package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig holds the capture declaration store connection
type StorageConfig struct {
	Driver       string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RankingConfig holds leaderboard and trend sizing
type RankingConfig struct {
	TopN        int `mapstructure:"top_n"`
	TrendMonths int `mapstructure:"trend_months"`
}

// DashboardConfig holds section assembly settings
type DashboardConfig struct {
	Workers int `mapstructure:"workers"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TelegramConfig holds Telegram digest configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	TopEntries     int           `mapstructure:"top_entries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. FISHRANK_STORAGE_DSN
	v.SetEnvPrefix("FISHRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "./data/fishrank.db")
	v.SetDefault("storage.max_open_conns", 4)

	// Ranking defaults
	v.SetDefault("ranking.top_n", 10)
	v.SetDefault("ranking.trend_months", 6)

	// Dashboard defaults
	v.SetDefault("dashboard.workers", 4)

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.top_entries", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Storage config
	validDrivers := map[string]bool{"sqlite": true, "postgres": true}
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("storage.driver must be one of: sqlite, postgres")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.MaxOpenConns < 1 {
		return fmt.Errorf("storage.max_open_conns must be at least 1")
	}

	// Validate Ranking config
	if c.Ranking.TopN < 1 {
		return fmt.Errorf("ranking.top_n must be at least 1")
	}
	if c.Ranking.TrendMonths < 1 || c.Ranking.TrendMonths > 24 {
		return fmt.Errorf("ranking.trend_months must be between 1 and 24")
	}

	// Validate Dashboard config
	if c.Dashboard.Workers < 1 {
		return fmt.Errorf("dashboard.workers must be at least 1")
	}

	// Validate Server config
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.read_timeout and server.write_timeout must be positive")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.TopEntries < 1 {
		return fmt.Errorf("telegram.top_entries must be at least 1")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
