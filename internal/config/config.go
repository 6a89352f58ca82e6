package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/kepler/internal/message"
)

// Config represents the complete kepler configuration
type Config struct {
	Pool     PoolConfig     `mapstructure:"pool" yaml:"pool"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Selftest SelftestConfig `mapstructure:"selftest" yaml:"selftest"`
	Loadgen  LoadgenConfig  `mapstructure:"loadgen" yaml:"loadgen"`
}

// PoolConfig controls the message pool
type PoolConfig struct {
	// Capacity is the maximum number of outstanding messages (default: 2048)
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether log output is produced at all (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "warn")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path of the JSON log file. Empty means stderr.
	File string `mapstructure:"file" yaml:"file"`
}

// SelftestConfig controls the selftest command
type SelftestConfig struct {
	// Scenarios restricts the run to the named scenarios. Empty runs all of them.
	Scenarios []string `mapstructure:"scenarios" yaml:"scenarios"`
}

// LoadgenConfig controls the stress command
type LoadgenConfig struct {
	// Producers is the number of concurrent sending goroutines
	Producers int `mapstructure:"producers" yaml:"producers"`
	// Consumers is the number of concurrent receiving goroutines
	Consumers int `mapstructure:"consumers" yaml:"consumers"`
	// MessagesPerProducer is how many messages each producer sends
	MessagesPerProducer int `mapstructure:"messages_per_producer" yaml:"messages_per_producer"`
	// Destinations is how many destination queues the load is spread over
	Destinations int `mapstructure:"destinations" yaml:"destinations"`
	// Timeout bounds the whole run (0 = no limit)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Capacity: message.MaxMessages,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "warn",
			File:    "",
		},
		Selftest: SelftestConfig{
			Scenarios: []string{},
		},
		Loadgen: LoadgenConfig{
			Producers:           8,
			Consumers:           4,
			MessagesPerProducer: 10000,
			Destinations:        16,
			Timeout:             30 * time.Second,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Pool defaults
	viper.SetDefault("pool.capacity", defaults.Pool.Capacity)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)

	// Selftest defaults
	viper.SetDefault("selftest.scenarios", defaults.Selftest.Scenarios)

	// Loadgen defaults
	viper.SetDefault("loadgen.producers", defaults.Loadgen.Producers)
	viper.SetDefault("loadgen.consumers", defaults.Loadgen.Consumers)
	viper.SetDefault("loadgen.messages_per_producer", defaults.Loadgen.MessagesPerProducer)
	viper.SetDefault("loadgen.destinations", defaults.Loadgen.Destinations)
	viper.SetDefault("loadgen.timeout", defaults.Loadgen.Timeout)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kepler")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kepler"
	}
	return filepath.Join(home, ".config", "kepler")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
