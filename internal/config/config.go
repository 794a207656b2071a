// Package config provides configuration management for the gridcast forecasting pipeline.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app" validate:"required"`
	Rating       RatingConfig       `mapstructure:"rating" validate:"required"`
	Rolling      RollingConfig      `mapstructure:"rolling" validate:"required"`
	Cascade      CascadeConfig      `mapstructure:"cascade" validate:"required"`
	Model        ModelConfig        `mapstructure:"model" validate:"required"`
	Validation   ValidationConfig   `mapstructure:"validation"`
	Availability AvailabilityConfig `mapstructure:"availability" validate:"required"`
	Environment  EnvironmentConfig  `mapstructure:"environment"`
	Feeds        FeedsConfig        `mapstructure:"feeds" validate:"required"`
	Retry        RetryConfig        `mapstructure:"retry" validate:"required"`
	Storage      StorageConfig      `mapstructure:"storage" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Output       OutputConfig       `mapstructure:"output" validate:"required"`
	Schedule     ScheduleConfig     `mapstructure:"schedule"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Teams        []models.Team      `mapstructure:"teams" validate:"dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// RatingConfig configures the Elo rating engine
type RatingConfig struct {
	KFactor          float64 `mapstructure:"k_factor" validate:"required,gt=0"`
	InitialRating    float64 `mapstructure:"initial_rating" validate:"required,gt=0"`
	HomeAdvantage    float64 `mapstructure:"home_advantage" validate:"gte=0"`
	SeasonRegression float64 `mapstructure:"season_regression" validate:"gte=0,lt=1"`
}

// RollingConfig configures trailing-window aggregates
type RollingConfig struct {
	Window          int       `mapstructure:"window" validate:"required,gt=0"`
	FormWeights     []float64 `mapstructure:"form_weights" validate:"required,min=1,dive,gt=0"`
	MinPeriods      int       `mapstructure:"min_periods" validate:"required,gte=1"`
	DefaultRestDays int       `mapstructure:"default_rest_days" validate:"required,gt=0"`
}

// CascadeConfig configures the adjustment cascade and win-probability mapping
type CascadeConfig struct {
	Sigma            float64 `mapstructure:"sigma" validate:"required,gt=0"`
	ProbabilityFloor float64 `mapstructure:"probability_floor" validate:"gte=0,lte=0.5"`
	ProbabilityCeil  float64 `mapstructure:"probability_ceiling" validate:"required,gte=0.5,lte=1"`
	Workers          int     `mapstructure:"workers" validate:"required,gt=0"`
}

// ModelConfig configures the base forecaster
type ModelConfig struct {
	RidgeLambda        float64 `mapstructure:"ridge_lambda" validate:"gte=0"`
	LogisticIterations int     `mapstructure:"logistic_iterations" validate:"required,gt=0"`
	LogisticLambda     float64 `mapstructure:"logistic_lambda" validate:"gte=0"`
	Version            string  `mapstructure:"version" validate:"required"`
}

// ValidationConfig configures batch validation
type ValidationConfig struct {
	FlagTolerance       float64 `mapstructure:"flag_tolerance" validate:"gte=0"`
	BootstrapIterations int     `mapstructure:"bootstrap_iterations" validate:"gte=0"`
	ConfidenceLevel     float64 `mapstructure:"confidence_level" validate:"omitempty,gt=0,lt=1"`
	Seed                int64   `mapstructure:"seed"`
}

// BandConfig is an inclusive clamp range in points
type BandConfig struct {
	Min float64 `mapstructure:"min" validate:"gte=0"`
	Max float64 `mapstructure:"max" validate:"required,gt=0"`
}

// AvailabilityConfig configures the availability impact resolver
type AvailabilityConfig struct {
	CriticalPosition    string             `mapstructure:"critical_position" validate:"required"`
	UsageMinPlays       int                `mapstructure:"usage_min_plays" validate:"gte=0"`
	UsageWindowDays     int                `mapstructure:"usage_window_days" validate:"required,gt=0"`
	EPAScale            float64            `mapstructure:"epa_scale" validate:"required,gt=0"`
	LeagueAverageEPA    float64            `mapstructure:"league_average_epa"`
	ReplacementLevelEPA float64            `mapstructure:"replacement_level_epa"`
	CompetentBand       BandConfig         `mapstructure:"competent_band" validate:"required"`
	WeakBand            BandConfig         `mapstructure:"weak_band" validate:"required"`
	FallbackPenalty     float64            `mapstructure:"fallback_penalty" validate:"gte=0"`
	DefenseSensitivity  float64            `mapstructure:"defense_sensitivity" validate:"gte=0"`
	DefenseLookbackDays int                `mapstructure:"defense_lookback_days" validate:"required,gt=0"`
	MultiplierMin       float64            `mapstructure:"multiplier_min" validate:"required,gt=0"`
	MultiplierMax       float64            `mapstructure:"multiplier_max" validate:"required,gt=0"`
	DoubtfulFactor      float64            `mapstructure:"doubtful_factor" validate:"gte=0,lte=1"`
	QuestionableFactor  float64            `mapstructure:"questionable_factor" validate:"gte=0,lte=1"`
	PositionImpacts     map[string]float64 `mapstructure:"position_impacts"`
}

// EnvironmentConfig configures the weather stage
type EnvironmentConfig struct {
	EnclosedVenues []string `mapstructure:"enclosed_venues"`
}

// FeedsConfig configures every external data feed
type FeedsConfig struct {
	Matches      FeedSourceConfig `mapstructure:"matches" validate:"required"`
	Plays        FeedSourceConfig `mapstructure:"plays"`
	Availability FeedSourceConfig `mapstructure:"availability"`
	DepthCharts  FeedSourceConfig `mapstructure:"depth_charts"`
	Weather      FeedSourceConfig `mapstructure:"weather"`
	HTTP         HTTPConfig       `mapstructure:"http"`
	CacheTTL     time.Duration    `mapstructure:"cache_ttl"`
	CacheMaxSize int              `mapstructure:"cache_max_size" validate:"gte=0"`
}

// FeedSourceConfig selects the implementation backing one feed
type FeedSourceConfig struct {
	Kind   string `mapstructure:"kind" validate:"omitempty,oneof=csv http postgres none"`
	Path   string `mapstructure:"path" validate:"required_if=Kind csv"`
	URL    string `mapstructure:"url" validate:"required_if=Kind http"`
	APIKey string `mapstructure:"api_key"`
	Units  string `mapstructure:"units" validate:"omitempty,oneof=imperial metric si"`
}

// HTTPConfig configures the shared HTTP client used by HTTP feeds
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RateLimit         float64       `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int           `mapstructure:"circuit_breaker_max" validate:"gte=0"`
}

// RetryConfig configures bounded retry with exponential backoff for feed calls
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"required,gt=0"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// StorageConfig selects where validation records are kept
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=file postgres"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// OutputConfig configures artifact locations
type OutputConfig struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	ValidationLog string `mapstructure:"validation_log" validate:"required"`
	CacheDir      string `mapstructure:"cache_dir" validate:"required"`
}

// ScheduleConfig configures scheduled re-runs
type ScheduleConfig struct {
	PredictCron  string `mapstructure:"predict_cron"`
	ValidateCron string `mapstructure:"validate_cron"`
	HorizonDays  int    `mapstructure:"horizon_days" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Port         int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path         string `mapstructure:"path"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether any component needs a database connection
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == "postgres" || c.Feeds.Matches.Kind == "postgres"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// TeamIndex returns the configured teams keyed by code
func (c *Config) TeamIndex() map[string]models.Team {
	index := make(map[string]models.Team, len(c.Teams))
	for _, t := range c.Teams {
		index[t.Code] = t
	}
	return index
}
