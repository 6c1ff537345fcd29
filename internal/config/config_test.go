package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
storage:
  driver: "sqlite"
  dsn: "./data/test.db"
  max_open_conns: 2

ranking:
  top_n: 10
  trend_months: 6

dashboard:
  workers: 3

server:
  addr: ":9090"
  read_timeout: 5s
  write_timeout: 15s

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Storage.DSN != "./data/test.db" {
		t.Errorf("Unexpected DSN: %s", cfg.Storage.DSN)
	}
	if cfg.Dashboard.Workers != 3 {
		t.Errorf("Unexpected workers: %d", cfg.Dashboard.Workers)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Unexpected read timeout: %v", cfg.Server.ReadTimeout)
	}
	// Defaults fill keys the file leaves out
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Telegram.MaxRetries)
	}
	if cfg.Telegram.TopEntries != 5 {
		t.Errorf("Expected default top_entries 5, got %d", cfg.Telegram.TopEntries)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("FISHRANK_STORAGE_DSN", "/var/lib/fishrank/prod.db")
	t.Setenv("FISHRANK_RANKING_TOP_N", "15")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.DSN != "/var/lib/fishrank/prod.db" {
		t.Errorf("env override not applied, DSN = %s", cfg.Storage.DSN)
	}
	if cfg.Ranking.TopN != 15 {
		t.Errorf("env override not applied, top_n = %d", cfg.Ranking.TopN)
	}
	if cfg.Ranking.TrendMonths != 6 {
		t.Errorf("Expected default trend_months 6, got %d", cfg.Ranking.TrendMonths)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/fishrank.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func validConfig() *Config {
	return &Config{
		Storage:   StorageConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1},
		Ranking:   RankingConfig{TopN: 10, TrendMonths: 6},
		Dashboard: DashboardConfig{Workers: 2},
		Server:    ServerConfig{Addr: ":8080", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Telegram:  TelegramConfig{TopEntries: 5},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, true},
		{"postgres driver", func(c *Config) { c.Storage.Driver = "postgres" }, false},
		{"empty dsn", func(c *Config) { c.Storage.DSN = "" }, true},
		{"zero top_n", func(c *Config) { c.Ranking.TopN = 0 }, true},
		{"trend too long", func(c *Config) { c.Ranking.TrendMonths = 36 }, true},
		{"no workers", func(c *Config) { c.Dashboard.Workers = 0 }, true},
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExampleConfigValidates(t *testing.T) {
	cfg, err := Load("../../configs/config.example.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config should validate: %v", err)
	}
	if cfg.Telegram.RetryDelayBase != time.Second {
		t.Errorf("Unexpected retry_delay_base: %v", cfg.Telegram.RetryDelayBase)
	}
}
