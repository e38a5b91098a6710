// Package config loads server settings from .env, an optional YAML file and STUDIO_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // studio timezones must resolve on minimal images

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the server and the studioctl CLI.
type Config struct {
	Addr      string `yaml:"addr"`
	Env       string `yaml:"env"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	JWTSecret string `yaml:"jwt_secret"`
	CSRFKey   string `yaml:"csrf_key"`
	Timezone  string `yaml:"timezone"`

	ToleranceBeforeMinutes int `yaml:"tolerance_before_minutes"`
	ToleranceAfterMinutes  int `yaml:"tolerance_after_minutes"`
	ReplicationWorkers     int `yaml:"replication_workers"`

	// ReconcileInterval schedules the global enrollment sweep; 0 disables it.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	ResendKey         string        `yaml:"resend_key"`
	EmailFrom         string        `yaml:"email_from"`
	ReportRecipients  []string      `yaml:"report_recipients"`

	SlowQuery   time.Duration `yaml:"slow_query"`
	SlowRequest time.Duration `yaml:"slow_request"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	RateBurst   int           `yaml:"rate_burst"`
	CORSOrigins []string      `yaml:"cors_origins"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Addr:                   ":8080",
		Env:                    "development",
		DBPath:                 "studio.db",
		LogLevel:               "info",
		Timezone:               "UTC",
		ToleranceBeforeMinutes: 30,
		ToleranceAfterMinutes:  15,
		ReplicationWorkers:     4,
		EmailFrom:              "Studio <noreply@studio.local>",
		SlowQuery:              50 * time.Millisecond,
		SlowRequest:            200 * time.Millisecond,
		RatePerSec:             20,
		RateBurst:              40,
		CORSOrigins:            []string{"http://localhost:3000"},
	}
}

// Load builds the configuration. Later layers override earlier ones:
// defaults, then the YAML file named by STUDIO_CONFIG, then STUDIO_* variables
// (including any loaded from a .env file in the working directory).
// PRE: none
// POST: Returns a validated Config or an error describing the first bad field
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("STUDIO_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"STUDIO_ADDR":       &c.Addr,
		"STUDIO_ENV":        &c.Env,
		"STUDIO_DB_PATH":    &c.DBPath,
		"STUDIO_LOG_LEVEL":  &c.LogLevel,
		"STUDIO_JWT_SECRET": &c.JWTSecret,
		"STUDIO_CSRF_KEY":   &c.CSRFKey,
		"STUDIO_TIMEZONE":   &c.Timezone,
		"STUDIO_RESEND_KEY": &c.ResendKey,
		"STUDIO_EMAIL_FROM": &c.EmailFrom,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"STUDIO_TOLERANCE_BEFORE_MINUTES": &c.ToleranceBeforeMinutes,
		"STUDIO_TOLERANCE_AFTER_MINUTES":  &c.ToleranceAfterMinutes,
		"STUDIO_REPLICATION_WORKERS":      &c.ReplicationWorkers,
		"STUDIO_RATE_BURST":               &c.RateBurst,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"STUDIO_RECONCILE_INTERVAL": &c.ReconcileInterval,
		"STUDIO_SLOW_QUERY":         &c.SlowQuery,
		"STUDIO_SLOW_REQUEST":       &c.SlowRequest,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v, ok := lookup("STUDIO_RATE_PER_SEC"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STUDIO_RATE_PER_SEC: %w", err)
		}
		c.RatePerSec = f
	}
	if v, ok := lookup("STUDIO_REPORT_RECIPIENTS"); ok {
		c.ReportRecipients = splitList(v)
	}
	if v, ok := lookup("STUDIO_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.ToleranceBeforeMinutes < 0 || c.ToleranceAfterMinutes < 0 {
		return errors.New("tolerances cannot be negative")
	}
	if c.ReplicationWorkers < 1 {
		return errors.New("replication_workers must be at least 1")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("reconcile_interval cannot be negative")
	}
	if c.RatePerSec <= 0 || c.RateBurst < 1 {
		return errors.New("rate limit must be positive")
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return errors.New("csrf_key must be exactly 32 bytes")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes in production")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether Env is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the studio timezone.
// PRE: Validate has passed
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}
