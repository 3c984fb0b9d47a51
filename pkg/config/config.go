package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration struct for the application.
// It holds settings for logging, the API server, analytics behavior, and the
// background activity collector. Tags are used by Viper to map YAML keys to
// struct fields.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	APIPort   string          `mapstructure:"api_port"`
	DataDir   string          `mapstructure:"data_dir"`
	Training  TrainingConfig  `mapstructure:"training"`
	Collector CollectorConfig `mapstructure:"collector"`
}

// TrainingConfig controls the simulated model training lifecycle.
type TrainingConfig struct {
	// Delay between TrainModel returning and the model becoming ready.
	Delay string `mapstructure:"delay"`
}

// CollectorConfig controls the host activity collector.
type CollectorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	EntityID string `mapstructure:"entity_id"`
}

// TrainingDelay parses the configured training delay, falling back to the
// default when unset or invalid.
func (c *Config) TrainingDelay() time.Duration {
	d, err := time.ParseDuration(c.Training.Delay)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// CollectorInterval parses the configured collector interval, falling back to
// the default when unset or invalid.
func (c *Config) CollectorInterval() time.Duration {
	d, err := time.ParseDuration(c.Collector.Interval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// LoadConfig reads the configuration from a YAML file (e.g., config.yaml) and
// environment variables. It uses Viper for robust configuration management,
// allowing for defaults and environment variable overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	// Search the working directory first, then /etc/argus/.
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/argus/")

	// Set default values
	v.SetDefault("log_level", "info")
	v.SetDefault("api_port", "8080")
	v.SetDefault("data_dir", "")
	v.SetDefault("training.delay", "5s")
	v.SetDefault("collector.enabled", false)
	v.SetDefault("collector.interval", "1m")
	v.SetDefault("collector.entity_id", "local-host")

	// Read environment variables
	v.SetEnvPrefix("ARGUS") // Look for ARGUS_ prefix
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
