package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Service holds all configuration for the olympiad service.
type Service struct {
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsAddr string `yaml:"metrics_addr"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Olympiad rules
	Olympiad OlympiadConfig `yaml:"olympiad"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Duration — time.Duration, читающийся из yaml строкой вида "6h", "90s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"6h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// OlympiadConfig holds the cycle/window rule overrides.
type OlympiadConfig struct {
	// LegacyRuleset: недельные циклы (конец — понедельник) и порог
	// участия 5 матчей вместо 10.
	LegacyRuleset bool `yaml:"legacy_ruleset"`

	CompStartHour   int      `yaml:"comp_start_hour"`
	CompStartMinute int      `yaml:"comp_start_minute"`
	CompPeriod      Duration `yaml:"comp_period"`

	WeeklyPeriod     Duration `yaml:"weekly_period"`
	WeeklyPoints     int32    `yaml:"weekly_points"`
	ValidationPeriod Duration `yaml:"validation_period"`

	DrainPollInterval Duration `yaml:"drain_poll_interval"`
	DrainTimeout      Duration `yaml:"drain_timeout"`

	MatchmakingInterval Duration `yaml:"matchmaking_interval"`
	AnnounceGames       bool     `yaml:"announce_games"`
}

// DefaultService returns Service config with sensible defaults.
func DefaultService() Service {
	return Service{
		LogLevel:    "info",
		MetricsAddr: ":9464",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "olympiad",
			Password: "olympiad",
			DBName:   "olympiad",
			SSLMode:  "disable",
		},
		Olympiad: OlympiadConfig{
			LegacyRuleset:       false,
			CompStartHour:       18,
			CompStartMinute:     0,
			CompPeriod:          Duration(6 * time.Hour),
			WeeklyPeriod:        Duration(7 * 24 * time.Hour),
			WeeklyPoints:        10,
			ValidationPeriod:    Duration(24 * time.Hour),
			DrainPollInterval:   Duration(time.Minute),
			DrainTimeout:        Duration(15 * time.Minute),
			MatchmakingInterval: Duration(30 * time.Second),
			AnnounceGames:       true,
		},
	}
}

// LoadService reads the service config from a YAML file.
// Missing file is not an error: defaults are returned.
func LoadService(path string) (Service, error) {
	cfg := DefaultService()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}
