// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. A .env file (optional, loaded into the environment first)
//  2. YAML file (config.yaml), with ${VAR} expansion
//  3. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	addr := cfg.Server.Address()
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
	"github.com/eshaffer321/recurring-ledger/internal/domain/matcher"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Tracker       TrackerConfig       `yaml:"tracker"`
	Detection     DetectionConfig     `yaml:"detection"`
	Matching      MatchingConfig      `yaml:"matching"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Mode           string   `yaml:"mode"` // gin mode: debug, release, test
}

// Address returns host:port for http.Server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TrackerConfig holds service registry settings
type TrackerConfig struct {
	DefaultCurrency string `yaml:"default_currency"`
	Timezone        string `yaml:"timezone"` // IANA name used to derive "today"
	MaxMonthsAhead  int    `yaml:"max_months_ahead"`
}

// Location resolves Timezone, falling back to the local zone.
func (t TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid tracker.timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

// DetectionConfig holds pattern detector tuning. Zero values keep defaults.
type DetectionConfig struct {
	MinOccurrences          int     `yaml:"min_occurrences"`
	LookbackMonths          int     `yaml:"lookback_months"`
	DayToleranceShort       int     `yaml:"day_tolerance_short"`
	DayToleranceLong        int     `yaml:"day_tolerance_long"`
	VariableAmountThreshold float64 `yaml:"variable_amount_threshold"`
}

// MatchingConfig holds match scorer tuning. Zero values keep defaults.
type MatchingConfig struct {
	MinConfidence     int     `yaml:"min_confidence"`
	AmountTolerance   float64 `yaml:"amount_tolerance"`
	MaxDateOffsetDays int     `yaml:"max_date_offset_days"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text (Maven-style) or json
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${LEDGER_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := defaults()
	cfg.Storage.DatabasePath = getEnv("LEDGER_DB_PATH", cfg.Storage.DatabasePath)
	cfg.Server.Host = getEnv("LEDGER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("LEDGER_PORT", cfg.Server.Port)
	cfg.Server.Mode = getEnv("GIN_MODE", cfg.Server.Mode)
	if origins := os.Getenv("LEDGER_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	cfg.Tracker.DefaultCurrency = getEnv("LEDGER_DEFAULT_CURRENCY", cfg.Tracker.DefaultCurrency)
	cfg.Tracker.Timezone = getEnv("LEDGER_TIMEZONE", cfg.Tracker.Timezone)
	cfg.Detection.MinOccurrences = getEnvInt("LEDGER_MIN_OCCURRENCES", cfg.Detection.MinOccurrences)
	cfg.Detection.LookbackMonths = getEnvInt("LEDGER_LOOKBACK_MONTHS", cfg.Detection.LookbackMonths)
	cfg.Matching.MinConfidence = getEnvInt("LEDGER_MIN_MATCH_CONFIDENCE", cfg.Matching.MinConfidence)
	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)
	return cfg
}

// LoadOrEnv loads .env if present, then tries config.yaml, then falls back
// to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath is LoadOrEnv for a specific config file
func LoadOrEnvWithPath(path string) *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func defaults() *Config {
	d := detector.DefaultConfig()
	m := matcher.DefaultConfig()
	return &Config{
		Storage: StorageConfig{DatabasePath: "recurring_ledger.db"},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Mode:           "release",
		},
		Tracker: TrackerConfig{
			DefaultCurrency: "USD",
			MaxMonthsAhead:  24,
		},
		Detection: DetectionConfig{
			MinOccurrences:          d.MinOccurrences,
			LookbackMonths:          d.LookbackMonths,
			DayToleranceShort:       d.DayToleranceShort,
			DayToleranceLong:        d.DayToleranceLong,
			VariableAmountThreshold: d.VariableAmountThreshold,
		},
		Matching: MatchingConfig{
			MinConfidence:     m.MinConfidence,
			AmountTolerance:   m.AmountTolerance,
			MaxDateOffsetDays: m.MaxDateOffsetDays,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// DetectorConfig overlays the detection section on the detector defaults.
func (c *Config) DetectorConfig() detector.Config {
	d := detector.DefaultConfig()
	if v := c.Detection.MinOccurrences; v > 0 {
		d.MinOccurrences = v
	}
	if v := c.Detection.LookbackMonths; v > 0 {
		d.LookbackMonths = v
	}
	if v := c.Detection.DayToleranceShort; v > 0 {
		d.DayToleranceShort = v
	}
	if v := c.Detection.DayToleranceLong; v > 0 {
		d.DayToleranceLong = v
	}
	if v := c.Detection.VariableAmountThreshold; v > 0 {
		d.VariableAmountThreshold = v
	}
	return d
}

// MatcherConfig overlays the matching section on the scorer defaults.
func (c *Config) MatcherConfig() matcher.Config {
	m := matcher.DefaultConfig()
	if v := c.Matching.MinConfidence; v > 0 {
		m.MinConfidence = v
	}
	if v := c.Matching.AmountTolerance; v > 0 {
		m.AmountTolerance = v
	}
	if v := c.Matching.MaxDateOffsetDays; v > 0 {
		m.MaxDateOffsetDays = v
	}
	return m
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
