package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"phackdemo/domain/trial"
	"phackdemo/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Pacing     PacingConfig     `yaml:"pacing"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Server     ServerConfig     `yaml:"server"`
	LogLevel   string           `yaml:"log_level"`
}

// SimulationConfig holds generator and run sizes
type SimulationConfig struct {
	BatchSize   int    `yaml:"batch_size"`
	SampleSize  int    `yaml:"sample_size"`
	TrialCap    int    `yaml:"trial_cap"`
	Seed        int64  `yaml:"seed"` // 0 draws a fresh seed per run
	CodeVersion string `yaml:"code_version"`
}

// PacingConfig holds presentation timing for paced drivers
type PacingConfig struct {
	TrialInterval time.Duration `yaml:"trial_interval"`
	RevealDelay   time.Duration `yaml:"reveal_delay"`
}

// LedgerConfig selects the run ledger backend
type LedgerConfig struct {
	Driver string `yaml:"driver"` // sqlite3, postgres or memory
	DSN    string `yaml:"dsn"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port       string        `yaml:"port"`
	GinMode    string        `yaml:"gin_mode"`
	SessionTTL time.Duration `yaml:"session_ttl"` // idle demo sessions are dropped after this
}

// Default returns the settings of the original demo
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			BatchSize:   trial.DefaultBatchSize,
			SampleSize:  trial.DefaultSampleSize,
			TrialCap:    trial.DefaultTrialCap,
			CodeVersion: "1.0.0",
		},
		Pacing: PacingConfig{
			TrialInterval: 300 * time.Millisecond,
			RevealDelay:   time.Second,
		},
		Ledger: LedgerConfig{
			Driver: "sqlite3",
			DSN:    "file:phackdemo.db?cache=shared",
		},
		Server: ServerConfig{
			Port:       "8080",
			GinMode:    "release",
			SessionTTL: 30 * time.Minute,
		},
		LogLevel: "INFO",
	}
}

// Load builds configuration from defaults, an optional YAML file named by
// PHACK_CONFIG, then environment variables, and validates the result
func Load() (*Config, error) {
	config := Default()

	if path := os.Getenv("PHACK_CONFIG"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, errors.Wrap(err, "failed to load configuration file")
		}
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return errors.Wrap(errors.ConfigInvalid(err.Error()), path)
	}
	return nil
}

func applyEnv(config *Config) {
	sim := &config.Simulation
	sim.BatchSize = getEnvIntOrDefault("BATCH_SIZE", sim.BatchSize)
	sim.SampleSize = getEnvIntOrDefault("SAMPLE_SIZE", sim.SampleSize)
	sim.TrialCap = getEnvIntOrDefault("TRIAL_CAP", sim.TrialCap)
	sim.Seed = getEnvInt64OrDefault("SEED", sim.Seed)
	sim.CodeVersion = getEnvOrDefault("CODE_VERSION", sim.CodeVersion)

	config.Pacing.TrialInterval = getEnvDurationOrDefault("TRIAL_INTERVAL", config.Pacing.TrialInterval)
	config.Pacing.RevealDelay = getEnvDurationOrDefault("REVEAL_DELAY", config.Pacing.RevealDelay)

	config.Ledger.Driver = getEnvOrDefault("LEDGER_DRIVER", config.Ledger.Driver)
	config.Ledger.DSN = getEnvOrDefault("LEDGER_DSN", config.Ledger.DSN)

	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Server.GinMode = getEnvOrDefault("GIN_MODE", config.Server.GinMode)
	config.Server.SessionTTL = getEnvDurationOrDefault("SESSION_TTL", config.Server.SessionTTL)

	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
}

// Validate rejects sizes and timings the simulator cannot run with
func Validate(config *Config) error {
	sim := config.Simulation
	if sim.BatchSize <= 0 {
		return errors.ConfigInvalid("BATCH_SIZE must be positive")
	}
	if sim.SampleSize <= 0 {
		return errors.ConfigInvalid("SAMPLE_SIZE must be positive")
	}
	if sim.TrialCap <= 0 {
		return errors.ConfigInvalid("TRIAL_CAP must be positive")
	}
	if config.Pacing.TrialInterval < 0 || config.Pacing.RevealDelay < 0 {
		return errors.ConfigInvalid("pacing durations cannot be negative")
	}
	if config.Server.SessionTTL < 0 {
		return errors.ConfigInvalid("SESSION_TTL cannot be negative")
	}
	switch config.Ledger.Driver {
	case "sqlite3", "postgres", "memory":
	default:
		return errors.ConfigInvalid("LEDGER_DRIVER must be sqlite3, postgres or memory")
	}
	if config.Ledger.Driver != "memory" && config.Ledger.DSN == "" {
		return errors.ConfigInvalid("LEDGER_DSN is required for SQL ledgers")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
