// Package config provides configuration management for the gridcast forecasting pipeline.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/gridcast/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("severity", validateSeverity)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateSeverity validates an availability tier
func validateSeverity(fl validator.FieldLevel) bool {
	switch models.Severity(fl.Field().String()) {
	case models.SeverityOut, models.SeverityDoubtful, models.SeverityQuestionable, models.SeverityLongTermOut:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Cascade.ProbabilityFloor >= cfg.Cascade.ProbabilityCeil {
		return fmt.Errorf("cascade probability_floor must be below probability_ceiling")
	}

	if len(cfg.Rolling.FormWeights) > cfg.Rolling.Window {
		return fmt.Errorf("rolling form_weights cannot be longer than the rolling window")
	}
	if cfg.Rolling.MinPeriods > cfg.Rolling.Window {
		return fmt.Errorf("rolling min_periods cannot exceed the rolling window")
	}

	for name, band := range map[string]BandConfig{
		"competent_band": cfg.Availability.CompetentBand,
		"weak_band":      cfg.Availability.WeakBand,
	} {
		if band.Min > band.Max {
			return fmt.Errorf("availability %s min cannot exceed max", name)
		}
	}
	if cfg.Availability.MultiplierMin > cfg.Availability.MultiplierMax {
		return fmt.Errorf("availability multiplier_min cannot exceed multiplier_max")
	}
	if cfg.Availability.QuestionableFactor > cfg.Availability.DoubtfulFactor {
		return fmt.Errorf("availability questionable_factor cannot exceed doubtful_factor")
	}

	if cfg.Retry.BaseDelay < 0 || cfg.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays cannot be negative")
	}

	if cfg.UsesPostgres() {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database host, name and user are required when postgres storage is enabled")
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"predict_cron":  cfg.Schedule.PredictCron,
		"validate_cron": cfg.Schedule.ValidateCron,
	} {
		if expr == "" {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("schedule %s is not a valid cron expression: %w", name, err)
		}
	}

	seen := make(map[string]bool, len(cfg.Teams))
	for _, team := range cfg.Teams {
		if seen[team.Code] {
			return fmt.Errorf("team %s is configured more than once", team.Code)
		}
		seen[team.Code] = true
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
