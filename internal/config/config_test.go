package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "humanbattery.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Profile: ProfileConfig{Name: "Ada"},
		Engine: EngineConfig{
			Window:             10,
			ConfidentThreshold: 5,
			DefaultEnergy:      50,
		},
		Storage: StorageConfig{
			Backend:         "json",
			FilePermissions: 0600,
			DirPermissions:  0700,
			MaxRevisions:    20,
		},
		Telegram: TelegramConfig{MaxRetries: 3, RetryDelayBase: time.Second},
		Logging:  LoggingConfig{Level: "info", Format: "plain"},
		Output:   OutputConfig{Format: "table", Precision: 1},
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
profile:
  name: "Ada"

engine:
  window: 7
  confident_threshold: 3
  default_energy: 65

storage:
  backend: "sqlite"
  db_path: "/tmp/hb/profile.db"
  max_revisions: 5

telegram:
  enabled: true
  bot_token: "test_token"
  chat_id: "12345"
  retry_delay_base: 2s

logging:
  level: "debug"
  format: "text"

output:
  format: "csv"
  precision: 2
  color: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Profile.Name != "Ada" {
		t.Errorf("Unexpected profile name: %s", cfg.Profile.Name)
	}
	if cfg.Engine.Window != 7 || cfg.Engine.ConfidentThreshold != 3 || cfg.Engine.DefaultEnergy != 65 {
		t.Errorf("Unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.DBPath != "/tmp/hb/profile.db" || cfg.Storage.MaxRevisions != 5 {
		t.Errorf("Unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Telegram.RetryDelayBase != 2*time.Second {
		t.Errorf("Unexpected retry delay: %v", cfg.Telegram.RetryDelayBase)
	}
	if cfg.Telegram.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Telegram.MaxRetries)
	}
	if cfg.Output.Format != "csv" || cfg.Output.Precision != 2 || cfg.Output.Color {
		t.Errorf("Unexpected output config: %+v", cfg.Output)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Profile.Name != "Humanoid" {
		t.Errorf("Unexpected default name: %s", cfg.Profile.Name)
	}
	if cfg.Engine.Window != 10 || cfg.Engine.ConfidentThreshold != 5 || cfg.Engine.DefaultEnergy != 50 {
		t.Errorf("Unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Storage.Backend != "json" || cfg.Storage.FilePermissions != 0600 || cfg.Storage.DirPermissions != 0700 {
		t.Errorf("Unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Telegram.RetryDelayBase != time.Second {
		t.Errorf("Unexpected retry delay default: %v", cfg.Telegram.RetryDelayBase)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("HUMANBATTERY_STORAGE_BACKEND", "sqlite")
	t.Setenv("HUMANBATTERY_ENGINE_WINDOW", "4")

	path := writeConfig(t, "engine:\n  window: 8\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Expected env backend sqlite, got %s", cfg.Storage.Backend)
	}
	if cfg.Engine.Window != 4 {
		t.Errorf("Expected env window 4, got %d", cfg.Engine.Window)
	}
}

func TestLoadWithOverride(t *testing.T) {
	v := viper.New()
	v.Set("output.format", "json")

	cfg, err := LoadWith(v, writeConfig(t, "output:\n  format: csv\n"))
	if err != nil {
		t.Fatalf("LoadWith failed: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Expected override json, got %s", cfg.Output.Format)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "engine: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"blank profile name", func(c *Config) { c.Profile.Name = " " }},
		{"zero window", func(c *Config) { c.Engine.Window = 0 }},
		{"zero confident threshold", func(c *Config) { c.Engine.ConfidentThreshold = 0 }},
		{"default energy above range", func(c *Config) { c.Engine.DefaultEnergy = 120 }},
		{"default energy NaN", func(c *Config) { c.Engine.DefaultEnergy = math.NaN() }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mysql" }},
		{"bad permissions", func(c *Config) { c.Storage.FilePermissions = 01000 }},
		{"zero revisions", func(c *Config) { c.Storage.MaxRevisions = 0 }},
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
		}},
		{"missing telegram chat when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.BotToken = "token"
		}},
		{"zero retries", func(c *Config) { c.Telegram.MaxRetries = 0 }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "json" }},
		{"invalid output format", func(c *Config) { c.Output.Format = "parquet" }},
		{"negative precision", func(c *Config) { c.Output.Precision = -1 }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() should fail")
			}
		})
	}
}
