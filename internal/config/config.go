// Package config provides configuration management for the voter power engine.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/voter-power/internal/models"
)

// DateLayout is the layout of every date in the configuration
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	App          AppConfig           `mapstructure:"app" validate:"required"`
	Model        ModelConfig         `mapstructure:"model" validate:"required"`
	ErrorSources []ErrorSourceConfig `mapstructure:"error_sources" validate:"required,min=1,dive"`
	Ratings      []RatingConfig      `mapstructure:"ratings" validate:"required,min=1,dive"`
	Blending     BlendingConfig      `mapstructure:"blending"`
	Input        InputConfig         `mapstructure:"input" validate:"required"`
	Output       OutputConfig        `mapstructure:"output" validate:"required"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
	Schedule     ScheduleConfig      `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ModelConfig holds the race-level error model and computation settings
type ModelConfig struct {
	RaceSigma            float64 `mapstructure:"race_sigma" validate:"required,gt=0"`
	RaceDegreesOfFreedom float64 `mapstructure:"race_deg_f" validate:"required,gt=0"`
	CDFTableSize         int     `mapstructure:"cdf_table_size" validate:"gte=0"`
	CDFDomain            float64 `mapstructure:"cdf_domain" validate:"gte=0"`
	MassTolerance        float64 `mapstructure:"mass_tolerance" validate:"gte=0,lt=1"`
	Workers              int     `mapstructure:"workers" validate:"gte=0"`
	StateWorkers         int     `mapstructure:"state_workers" validate:"gte=0"`
	ElectionDate         string  `mapstructure:"election_date" validate:"required,date"`
	LastUpdate           string  `mapstructure:"last_update" validate:"omitempty,date"`
	LinearVoteScaling    bool    `mapstructure:"linear_vote_scaling"`
}

// ErrorSourceConfig describes one correlated error source
type ErrorSourceConfig struct {
	Name             string  `mapstructure:"name" validate:"required"`
	Sigma            float64 `mapstructure:"sigma" validate:"required,gt=0"`
	DegreesOfFreedom float64 `mapstructure:"deg_f" validate:"required,gt=0"`
	Nodes            int     `mapstructure:"nodes" validate:"required,min=1,max=64"`
	Decay            bool    `mapstructure:"decay"`
	Uniform          bool    `mapstructure:"uniform"`
}

// RatingConfig maps a rating label to the favored party's expected margin
type RatingConfig struct {
	Rating string  `mapstructure:"rating" validate:"required,rating"`
	Margin float64 `mapstructure:"margin" validate:"gte=0,lte=1"`
}

// BlendingConfig represents foundation-model blending settings
type BlendingConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Clip          float64  `mapstructure:"clip" validate:"gte=0,lte=1"`
	Safe          float64  `mapstructure:"safe" validate:"gte=0,lte=1"`
	Other         float64  `mapstructure:"other" validate:"gte=0,lte=1"`
	ExcludeStates []string `mapstructure:"exclude_states"`
}

// InputConfig lists the CSV inputs
type InputConfig struct {
	Races  string `mapstructure:"races" validate:"required"`
	States string `mapstructure:"states" validate:"required"`
	Seats  string `mapstructure:"seats"`
}

// OutputConfig represents where results are written
type OutputConfig struct {
	Directory     string `mapstructure:"directory" validate:"required"`
	Probabilities string `mapstructure:"probabilities" validate:"required"`
	Powers        string `mapstructure:"powers" validate:"required"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// ScheduleConfig controls recurring runs of the schedule command
type ScheduleConfig struct {
	Cron       string        `mapstructure:"cron" validate:"omitempty,cron"`
	Mode       string        `mapstructure:"mode" validate:"omitempty,oneof=probability power"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

// RatingMargins returns the rating table as a lookup map
func (c *Config) RatingMargins() models.RatingMargins {
	out := make(models.RatingMargins, len(c.Ratings))
	for _, r := range c.Ratings {
		rating, err := models.ParseRating(r.Rating)
		if err != nil {
			continue
		}
		out[rating] = r.Margin
	}
	return out
}

// TailScale returns the factor dividing the degrees of freedom of the race
// model and of decaying sources. It grows with the days left before the
// election and is capped at 2. An empty last update means now.
func (m ModelConfig) TailScale(now time.Time) (float64, error) {
	election, err := time.Parse(DateLayout, m.ElectionDate)
	if err != nil {
		return 0, fmt.Errorf("invalid election_date: %w", err)
	}
	update := now
	if m.LastUpdate != "" {
		if update, err = time.Parse(DateLayout, m.LastUpdate); err != nil {
			return 0, fmt.Errorf("invalid last_update: %w", err)
		}
	}
	days := election.Sub(update).Hours() / 24
	return HorizonScale(days), nil
}

// HorizonScale computes 1 + min(1, ln(1 + days/20)/4); past elections use 1
func HorizonScale(days float64) float64 {
	if days <= 0 {
		return 1
	}
	return 1 + math.Min(1, math.Log1p(days/20)/4)
}

// Sources converts the configured error sources into domain sources with
// decaying tails divided by scale
func (c *Config) Sources(scale float64) []models.ErrorSource {
	out := make([]models.ErrorSource, 0, len(c.ErrorSources))
	for _, s := range c.ErrorSources {
		dof := s.DegreesOfFreedom
		if s.Decay {
			dof /= scale
		}
		out = append(out, models.ErrorSource{
			Name:             s.Name,
			Sigma:            s.Sigma,
			DegreesOfFreedom: dof,
			Nodes:            s.Nodes,
			Uniform:          s.Uniform,
			Decay:            s.Decay,
		})
	}
	return out
}
