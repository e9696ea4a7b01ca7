// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "RECEIPT"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Extraction struct {
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
		EarlyExitConfidence float64 `mapstructure:"early_exit_confidence" yaml:"early_exit_confidence"`
		MaxProcessingTimeMS int     `mapstructure:"max_processing_time_ms" yaml:"max_processing_time_ms"`
		FallbackEnabled     bool    `mapstructure:"fallback_enabled" yaml:"fallback_enabled"`
		AutoCorrect         bool    `mapstructure:"auto_correct" yaml:"auto_correct"`
		HeuristicWindow     int     `mapstructure:"heuristic_window" yaml:"heuristic_window"`
	} `mapstructure:"extraction" yaml:"extraction"`

	Classifier struct {
		Threshold int `mapstructure:"threshold" yaml:"threshold"`
	} `mapstructure:"classifier" yaml:"classifier"`

	Catalog struct {
		File    string `mapstructure:"file" yaml:"file"`
		Persist bool   `mapstructure:"persist" yaml:"persist"`
	} `mapstructure:"catalog" yaml:"catalog"`

	Categories struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"categories" yaml:"categories"`

	Hybrid struct {
		Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
		Provider          string  `mapstructure:"provider" yaml:"provider"`
		ServiceURL        string  `mapstructure:"service_url" yaml:"service_url"`
		QualityThreshold  float64 `mapstructure:"quality_threshold" yaml:"quality_threshold"`
		TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
		RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	} `mapstructure:"hybrid" yaml:"hybrid"`

	AI struct {
		Model  string `mapstructure:"model" yaml:"model"`
		APIKey string `mapstructure:"api_key" yaml:"-"` // Never serialize API key
	} `mapstructure:"ai" yaml:"ai"`

	Output struct {
		Format       string `mapstructure:"format" yaml:"format"`
		CSVDelimiter string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	} `mapstructure:"output" yaml:"output"`

	Batch struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"batch" yaml:"batch"`
}

// MaxProcessingTime returns the pipeline budget as a duration.
func (c *Config) MaxProcessingTime() time.Duration {
	return time.Duration(c.Extraction.MaxProcessingTimeMS) * time.Millisecond
}

// HybridTimeout returns the external collaborator timeout as a duration.
func (c *Config) HybridTimeout() time.Duration {
	return time.Duration(c.Hybrid.TimeoutSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return InitializeConfigFromFile("")
}

// InitializeConfigFromFile loads configuration like InitializeConfig but reads
// the given file instead of searching the default locations when path is set.
// A missing explicit file is an error; a missing default file is not.
func InitializeConfigFromFile(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.receipt-extract")
		v.AddConfigPath(".receipt-extract")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// API key is always read from the unprefixed variable
	if err := v.BindEnv("ai.api_key", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only, ignoring files
// and environment. Useful for tests and library callers.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("extraction.confidence_threshold", 0.3)
	v.SetDefault("extraction.early_exit_confidence", 0.8)
	v.SetDefault("extraction.max_processing_time_ms", 5000)
	v.SetDefault("extraction.fallback_enabled", true)
	v.SetDefault("extraction.auto_correct", true)
	v.SetDefault("extraction.heuristic_window", 3)

	v.SetDefault("classifier.threshold", 10)

	v.SetDefault("catalog.file", "")
	v.SetDefault("catalog.persist", false)

	v.SetDefault("categories.file", "")

	v.SetDefault("hybrid.enabled", false)
	v.SetDefault("hybrid.provider", "http")
	v.SetDefault("hybrid.service_url", "")
	v.SetDefault("hybrid.quality_threshold", 0.7)
	v.SetDefault("hybrid.timeout_seconds", 30)
	v.SetDefault("hybrid.max_retries", 2)
	v.SetDefault("hybrid.requests_per_minute", 60)

	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.api_key", "")

	v.SetDefault("output.format", "json")
	v.SetDefault("output.csv_delimiter", ",")

	v.SetDefault("batch.workers", 4)
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if err := checkUnit("extraction.confidence_threshold", config.Extraction.ConfidenceThreshold); err != nil {
		return err
	}
	if err := checkUnit("extraction.early_exit_confidence", config.Extraction.EarlyExitConfidence); err != nil {
		return err
	}
	if config.Extraction.EarlyExitConfidence < config.Extraction.ConfidenceThreshold {
		return fmt.Errorf("extraction.early_exit_confidence (%f) must not be below extraction.confidence_threshold (%f)",
			config.Extraction.EarlyExitConfidence, config.Extraction.ConfidenceThreshold)
	}
	if config.Extraction.MaxProcessingTimeMS < 1 {
		return fmt.Errorf("extraction.max_processing_time_ms must be positive, got: %d", config.Extraction.MaxProcessingTimeMS)
	}
	if config.Extraction.HeuristicWindow < 1 || config.Extraction.HeuristicWindow > 10 {
		return fmt.Errorf("extraction.heuristic_window must be between 1 and 10, got: %d", config.Extraction.HeuristicWindow)
	}

	if config.Classifier.Threshold < 1 {
		return fmt.Errorf("classifier.threshold must be positive, got: %d", config.Classifier.Threshold)
	}

	if config.Hybrid.Enabled {
		switch config.Hybrid.Provider {
		case "http":
			if config.Hybrid.ServiceURL == "" {
				return fmt.Errorf("hybrid.service_url required when provider is 'http'")
			}
		case "gemini":
			if config.AI.APIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY required when provider is 'gemini'")
			}
		default:
			return fmt.Errorf("invalid hybrid provider: %s (must be 'http' or 'gemini')", config.Hybrid.Provider)
		}
		if config.Hybrid.TimeoutSeconds < 1 || config.Hybrid.TimeoutSeconds > 300 {
			return fmt.Errorf("hybrid.timeout_seconds must be between 1 and 300, got: %d", config.Hybrid.TimeoutSeconds)
		}
		if config.Hybrid.MaxRetries < 0 || config.Hybrid.MaxRetries > 10 {
			return fmt.Errorf("hybrid.max_retries must be between 0 and 10, got: %d", config.Hybrid.MaxRetries)
		}
		if config.Hybrid.RequestsPerMinute < 1 || config.Hybrid.RequestsPerMinute > 1000 {
			return fmt.Errorf("hybrid.requests_per_minute must be between 1 and 1000, got: %d", config.Hybrid.RequestsPerMinute)
		}
	}
	if err := checkUnit("hybrid.quality_threshold", config.Hybrid.QualityThreshold); err != nil {
		return err
	}

	switch config.Output.Format {
	case "json", "yaml", "csv", "table":
	default:
		return fmt.Errorf("invalid output format: %s (must be json, yaml, csv or table)", config.Output.Format)
	}
	if len([]rune(config.Output.CSVDelimiter)) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.Output.CSVDelimiter)
	}

	if config.Batch.Workers < 1 || config.Batch.Workers > 64 {
		return fmt.Errorf("batch.workers must be between 1 and 64, got: %d", config.Batch.Workers)
	}

	return nil
}

func checkUnit(key string, value float64) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0, got: %f", key, value)
	}
	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
