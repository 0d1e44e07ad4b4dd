package app

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the analysis core consumes from the CLI and
// config file. Validation failures are fatal and surface before any
// analysis begins.
type Config struct {
	LogPath           string
	Threshold         int
	WindowHours       float64
	IgnoreInternal    bool
	IgnoreWhitelisted bool
	WhitelistPath     string
	OutputStem        string

	MinInterval   time.Duration
	FromBeginning bool

	MetricsEnabled bool
	MetricsAddr    string
}

// ConfigFromViper builds a Config from the bound flags, environment and
// config file.
func ConfigFromViper() Config {
	return Config{
		LogPath:           viper.GetString("log.path"),
		Threshold:         viper.GetInt("analysis.threshold"),
		WindowHours:       viper.GetFloat64("analysis.window_hours"),
		IgnoreInternal:    viper.GetBool("filters.ignore_internal"),
		IgnoreWhitelisted: viper.GetBool("filters.ignore_whitelisted"),
		WhitelistPath:     viper.GetString("filters.whitelist_file"),
		OutputStem:        viper.GetString("output.stem"),
		MinInterval:       time.Duration(viper.GetFloat64("watch.min_interval_seconds") * float64(time.Second)),
		MetricsEnabled:    viper.GetBool("metrics.enabled"),
		MetricsAddr:       viper.GetString("metrics.addr"),
	}
}

// Window converts the configured fractional hours into a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowHours * float64(time.Hour))
}

// Validate checks the knobs that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.LogPath == "" {
		return &ConfigValidationError{Field: "log.path", Value: c.LogPath, Reason: "log file path is required"}
	}
	if c.Threshold < 0 {
		return &ConfigValidationError{Field: "analysis.threshold", Value: c.Threshold, Reason: "must not be negative"}
	}
	if c.WindowHours <= 0 {
		return &ConfigValidationError{Field: "analysis.window_hours", Value: c.WindowHours, Reason: "must be positive"}
	}
	if c.MinInterval < time.Second {
		return &ConfigValidationError{Field: "watch.min_interval_seconds", Value: c.MinInterval.Seconds(), Reason: "must be at least 1 second"}
	}
	return nil
}

// ConfigValidationError is a fatal, pre-analysis configuration failure.
type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}
