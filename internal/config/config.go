package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// HUMANBATTERY_STORAGE_BACKEND=sqlite.
const EnvPrefix = "HUMANBATTERY"

// Config represents the complete application configuration
type Config struct {
	Profile  ProfileConfig  `mapstructure:"profile"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Output   OutputConfig   `mapstructure:"output"`
}

// ProfileConfig names the tracked person
type ProfileConfig struct {
	Name string `mapstructure:"name"`
}

// EngineConfig holds attribution settings
type EngineConfig struct {
	// Window is the number of samples each activity keeps.
	Window int `mapstructure:"window"`
	// ConfidentThreshold is the sample count an activity needs before it
	// shows up in summaries.
	ConfidentThreshold int `mapstructure:"confident_threshold"`
	// DefaultEnergy is the starting level assumed before anything is logged.
	DefaultEnergy float64 `mapstructure:"default_energy"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	FilePath        string `mapstructure:"file_path"`
	DBPath          string `mapstructure:"db_path"`
	FilePermissions uint32 `mapstructure:"file_permissions"`
	DirPermissions  uint32 `mapstructure:"dir_permissions"`
	MaxRevisions    int    `mapstructure:"max_revisions"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format    string `mapstructure:"format"`
	Precision int    `mapstructure:"precision"`
	Color     bool   `mapstructure:"color"`
}

// Load reads configuration from file and environment variables. An empty
// path searches the current directory and the user config directory for
// humanbattery.yaml. A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-provided viper instance, so command-line
// flags bound to v take precedence over the file.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("humanbattery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "humanbattery"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("profile.name", "Humanoid")

	// Engine defaults
	v.SetDefault("engine.window", 10)
	v.SetDefault("engine.confident_threshold", 5)
	v.SetDefault("engine.default_energy", 50.0)

	// Storage defaults; empty paths resolve to the user config directory
	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.file_path", "")
	v.SetDefault("storage.db_path", "")
	v.SetDefault("storage.file_permissions", 0600)
	v.SetDefault("storage.dir_permissions", 0700)
	v.SetDefault("storage.max_revisions", 20)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "plain")

	// Output defaults
	v.SetDefault("output.format", "table")
	v.SetDefault("output.precision", 1)
	v.SetDefault("output.color", true)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Profile.Name) == "" {
		return fmt.Errorf("profile.name is required")
	}

	// Validate Engine config
	if c.Engine.Window < 1 {
		return fmt.Errorf("engine.window must be at least 1")
	}
	if c.Engine.ConfidentThreshold < 1 {
		return fmt.Errorf("engine.confident_threshold must be at least 1")
	}
	if !(c.Engine.DefaultEnergy >= 0 && c.Engine.DefaultEnergy <= 100) {
		return fmt.Errorf("engine.default_energy must be between 0 and 100")
	}

	// Validate Storage config
	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be one of: json, sqlite")
	}
	if c.Storage.FilePermissions > 0777 || c.Storage.DirPermissions > 0777 {
		return fmt.Errorf("storage permissions must be valid unix modes")
	}
	if c.Storage.MaxRevisions < 1 {
		return fmt.Errorf("storage.max_revisions must be at least 1")
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
	if c.Telegram.MaxRetries < 1 {
		return fmt.Errorf("telegram.max_retries must be at least 1")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"plain": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: plain, text")
	}

	// Validate Output config
	validOutputs := map[string]bool{"table": true, "json": true, "csv": true}
	if !validOutputs[c.Output.Format] {
		return fmt.Errorf("output.format must be one of: table, json, csv")
	}
	if c.Output.Precision < 0 || c.Output.Precision > 6 {
		return fmt.Errorf("output.precision must be between 0 and 6")
	}

	return nil
}

// GetEngineConfig returns the Engine configuration
func (c *Config) GetEngineConfig() EngineConfig {
	return c.Engine
}

// GetStorageConfig returns the Storage configuration
func (c *Config) GetStorageConfig() StorageConfig {
	return c.Storage
}

// GetTelegramConfig returns the Telegram configuration
func (c *Config) GetTelegramConfig() TelegramConfig {
	return c.Telegram
}

// GetLoggingConfig returns the Logging configuration
func (c *Config) GetLoggingConfig() LoggingConfig {
	return c.Logging
}

// GetOutputConfig returns the Output configuration
func (c *Config) GetOutputConfig() OutputConfig {
	return c.Output
}
