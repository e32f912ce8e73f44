package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/voter-power/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("rating", validateRating)
	_ = v.RegisterValidation("date", validateDate)
	_ = v.RegisterValidation("cron", validateCron)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateRating(fl validator.FieldLevel) bool {
	_, err := models.ParseRating(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func validateCron(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Model.LastUpdate != "" {
		election, _ := time.Parse(DateLayout, cfg.Model.ElectionDate)
		update, _ := time.Parse(DateLayout, cfg.Model.LastUpdate)
		if update.After(election) {
			return fmt.Errorf("%w: last_update %s is after election_date %s",
				models.ErrConfiguration, cfg.Model.LastUpdate, cfg.Model.ElectionDate)
		}
	}

	names := make(map[string]bool, len(cfg.ErrorSources))
	for _, s := range cfg.ErrorSources {
		key := strings.ToLower(s.Name)
		if names[key] {
			return fmt.Errorf("%w: duplicate error source %q", models.ErrConfiguration, s.Name)
		}
		names[key] = true
	}

	margins := cfg.RatingMargins()
	var missing []string
	for _, r := range models.Ratings {
		if _, ok := margins[r]; !ok {
			missing = append(missing, string(r))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: ratings missing a margin: %s", models.ErrConfiguration, strings.Join(missing, ", "))
	}

	if cfg.Database.Enabled && cfg.Database.Port == 0 {
		return fmt.Errorf("%w: database port is required when the database is enabled", models.ErrConfiguration)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("%w: metrics port is required when metrics are enabled", models.ErrConfiguration)
	}
	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("%w: production environment requires SSL mode to be 'require' or 'verify-full'", models.ErrConfiguration)
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
		case "rating":
			fmt.Fprintf(&b, "- Field '%s' has unknown rating '%v'\n", field, value)
		case "date":
			fmt.Fprintf(&b, "- Field '%s' must be a date formatted as %s, got '%v'\n", field, DateLayout, value)
		case "cron":
			fmt.Fprintf(&b, "- Field '%s' is not a valid cron schedule: '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("%w: configuration validation failed:\n%s", models.ErrConfiguration, b.String())
}
