package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Port     int              `yaml:"port" validate:"min=1,max=65535"`
	Metrics  MetricsConfig    `yaml:"metrics"`
	Database DatabaseConfig   `yaml:"database"`
	Log      LogConfig        `yaml:"log"`
	Auth     AuthConfig       `yaml:"auth"`
	Schedule SchedulingConfig `yaml:"scheduling"`
	SeedFile string           `yaml:"seed_file"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `yaml:"path"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
	Log    bool   `yaml:"log"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig holds the HMAC secret used to verify bearer tokens. An empty
// secret disables token checks and scopes every request to DefaultOwner.
type AuthConfig struct {
	Secret       string `yaml:"secret"`
	DefaultOwner string `yaml:"default_owner"`
}

// SchedulingConfig holds the scheduling policy values.
type SchedulingConfig struct {
	DefaultYield            float64  `yaml:"default_yield" validate:"gte=0.1"`
	PrepDurationMinutes     int      `yaml:"prep_duration_minutes" validate:"gte=0"`
	CleaningDurationMinutes int      `yaml:"cleaning_duration_minutes" validate:"gte=0"`
	WorkdayStart            string   `yaml:"workday_start" validate:"required"`
	WorkdayEnd              string   `yaml:"workday_end" validate:"required"`
	WorkDays                []string `yaml:"work_days" validate:"min=1,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Port: 8080,
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "./data/creamery.db",
		},
		Log:  LogConfig{Mode: "dev"},
		Auth: AuthConfig{DefaultOwner: "default"},
		Schedule: SchedulingConfig{
			DefaultYield:            3.0,
			PrepDurationMinutes:     15,
			CleaningDurationMinutes: 15,
			WorkdayStart:            "08:00",
			WorkdayEnd:              "17:00",
			WorkDays:                []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Database.Driver = envOrDefault("CREAMERY_DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = envOrDefault("CREAMERY_DATABASE_DSN", cfg.Database.DSN)
	cfg.Auth.Secret = envOrDefault("CREAMERY_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Log.Mode = envOrDefault("CREAMERY_LOG_MODE", cfg.Log.Mode)
	cfg.SeedFile = envOrDefault("CREAMERY_SEED_FILE", cfg.SeedFile)
	if v := os.Getenv("CREAMERY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
