package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds micwatch configuration
type Config struct {
	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Monitoring
	PollInterval time.Duration `mapstructure:"poll_interval"`
	StopGrace    time.Duration `mapstructure:"stop_grace"`
	EventBuffer  int           `mapstructure:"event_buffer"`

	// Output
	OutputFormat string `mapstructure:"output_format"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		PollInterval: 500 * time.Millisecond,
		StopGrace:    250 * time.Millisecond,
		EventBuffer:  16,
		OutputFormat: "text",
	}
}

// Load reads configuration from an optional .env file, the config file and
// the environment. An empty path searches the platform config dir and ".".
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("micwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
	}

	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("poll_interval", cfg.PollInterval)
	v.SetDefault("stop_grace", cfg.StopGrace)
	v.SetDefault("event_buffer", cfg.EventBuffer)
	v.SetDefault("output_format", cfg.OutputFormat)

	// Environment variable support
	v.SetEnvPrefix("MICWATCH")
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path == "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// GetConfigDir returns the platform-specific config directory
func GetConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Breeze", "micwatch")
	case "darwin":
		return "/Library/Application Support/Breeze/micwatch"
	default: // Linux and others
		return "/etc/micwatch"
	}
}
