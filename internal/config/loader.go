package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VOTER_POWER_MODEL_WORKERS
const EnvPrefix = "VOTER_POWER"

// DefaultPath is used when no configuration path is given
const DefaultPath = "config/config.yaml"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if len(cfg.ErrorSources) == 0 {
		cfg.ErrorSources = defaultErrorSources()
	}
	if len(cfg.Ratings) == 0 {
		cfg.Ratings = defaultRatings()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "voter-power")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("model.race_sigma", 0.07)
	v.SetDefault("model.race_deg_f", 5.0)
	v.SetDefault("model.cdf_table_size", 10_000_000)
	v.SetDefault("model.cdf_domain", 50.0)
	v.SetDefault("model.mass_tolerance", 1e-9)
	v.SetDefault("model.workers", 0)
	v.SetDefault("model.state_workers", 1)
	v.SetDefault("model.election_date", "2024-11-05")

	v.SetDefault("blending.enabled", false)
	v.SetDefault("blending.clip", 0.06)
	v.SetDefault("blending.safe", 0.75)
	v.SetDefault("blending.other", 0.5)
	v.SetDefault("blending.exclude_states", []string{"NE", "NC"})

	v.SetDefault("input.races", "data/races.csv")
	v.SetDefault("input.states", "data/states.csv")
	v.SetDefault("input.seats", "data/congressional_seats.csv")

	v.SetDefault("output.directory", "generated_data")
	v.SetDefault("output.probabilities", "bipartisan_probabilities.csv")
	v.SetDefault("output.powers", "state_legislative_voter_power.csv")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 4)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.mode", "power")
	v.SetDefault("schedule.timeout", "4h")
}

func defaultErrorSources() []ErrorSourceConfig {
	return []ErrorSourceConfig{
		{Name: "statewide", Sigma: 0.05, DegreesOfFreedom: 5, Nodes: 11, Decay: true, Uniform: true},
	}
}

func defaultRatings() []RatingConfig {
	return []RatingConfig{
		{Rating: "Safe", Margin: 0.30},
		{Rating: "Likely", Margin: 0.15},
		{Rating: "Lean", Margin: 0.08},
		{Rating: "Tilt", Margin: 0.03},
		{Rating: "Toss-Up", Margin: 0},
		{Rating: "Uncontested", Margin: 1},
	}
}
