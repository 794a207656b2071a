// Package config provides configuration management for the gridcast forecasting pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "config/config.yaml"
	envPrefix         = "GRIDCAST"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables are used instead.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix(envPrefix)

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults registers every tunable with its documented default
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gridcast")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("rating.k_factor", 20.0)
	v.SetDefault("rating.initial_rating", 1500.0)
	v.SetDefault("rating.home_advantage", 0.0)
	v.SetDefault("rating.season_regression", 0.0)

	v.SetDefault("rolling.window", 10)
	v.SetDefault("rolling.form_weights", []float64{1.0, 1.5, 2.0})
	v.SetDefault("rolling.min_periods", 1)
	v.SetDefault("rolling.default_rest_days", 7)

	v.SetDefault("cascade.sigma", 13.5)
	v.SetDefault("cascade.probability_floor", 0.05)
	v.SetDefault("cascade.probability_ceiling", 0.95)
	v.SetDefault("cascade.workers", 4)

	v.SetDefault("model.ridge_lambda", 1.0)
	v.SetDefault("model.logistic_iterations", 2000)
	v.SetDefault("model.logistic_lambda", 0.01)
	v.SetDefault("model.version", "ridge-logit-v1")

	v.SetDefault("validation.flag_tolerance", 0.0)
	v.SetDefault("validation.bootstrap_iterations", 1000)
	v.SetDefault("validation.confidence_level", 0.9)
	v.SetDefault("validation.seed", 1)

	v.SetDefault("availability.critical_position", "QB")
	v.SetDefault("availability.usage_min_plays", 50)
	v.SetDefault("availability.usage_window_days", 21)
	v.SetDefault("availability.epa_scale", 35.0)
	v.SetDefault("availability.league_average_epa", 0.0)
	v.SetDefault("availability.replacement_level_epa", -0.15)
	v.SetDefault("availability.competent_band.min", 1.5)
	v.SetDefault("availability.competent_band.max", 4.5)
	v.SetDefault("availability.weak_band.min", 3.0)
	v.SetDefault("availability.weak_band.max", 9.0)
	v.SetDefault("availability.fallback_penalty", 4.0)
	v.SetDefault("availability.defense_sensitivity", 2.0)
	v.SetDefault("availability.defense_lookback_days", 112)
	v.SetDefault("availability.multiplier_min", 0.8)
	v.SetDefault("availability.multiplier_max", 1.2)
	v.SetDefault("availability.doubtful_factor", 0.6)
	v.SetDefault("availability.questionable_factor", 0.2)

	v.SetDefault("feeds.matches.kind", "csv")
	v.SetDefault("feeds.matches.path", "data/matches.csv")
	v.SetDefault("feeds.plays.kind", "none")
	v.SetDefault("feeds.availability.kind", "none")
	v.SetDefault("feeds.depth_charts.kind", "none")
	v.SetDefault("feeds.weather.kind", "none")
	v.SetDefault("feeds.weather.units", "imperial")
	v.SetDefault("feeds.http.timeout", "30s")
	v.SetDefault("feeds.http.rate_limit", 10.0)
	v.SetDefault("feeds.http.circuit_breaker_max", 5)
	v.SetDefault("feeds.cache_ttl", "1h")
	v.SetDefault("feeds.cache_max_size", 1000)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_delay", "30s")

	v.SetDefault("storage.driver", "file")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.validation_log", "output/validation_log.csv")
	v.SetDefault("output.cache_dir", "output/cache")

	v.SetDefault("schedule.predict_cron", "0 12 * * 3")
	v.SetDefault("schedule.validate_cron", "0 12 * * 2")
	v.SetDefault("schedule.horizon_days", 7)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
