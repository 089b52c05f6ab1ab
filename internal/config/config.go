// Package config loads runtime settings from flags, environment, an optional
// .env file and an optional config file.
//
// Precedence, highest first: command-line flags, SUBSYNC_* environment
// variables, the config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mmynk/subsync/internal/calculator"
	"github.com/mmynk/subsync/pkg/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SUBSYNC"

// DefaultQuotaBytes caps the primary store at 5 MiB.
const DefaultQuotaBytes = 5 << 20

// Config holds all configuration for the application.
type Config struct {
	DataDir     string `mapstructure:"data_dir"`
	QuotaBytes  int64  `mapstructure:"quota_bytes"`
	LogLevel    string `mapstructure:"log_level"`
	HorizonDays int    `mapstructure:"horizon_days"`

	// Today overrides the clock with a fixed YYYY-MM-DD date.
	Today string `mapstructure:"today"`

	// Ephemeral keeps every store in memory; nothing is written to disk.
	Ephemeral bool `mapstructure:"ephemeral"`
}

// keys maps config keys to their flag names.
var keys = map[string]string{
	"data_dir":     "data-dir",
	"quota_bytes":  "quota-bytes",
	"log_level":    "log-level",
	"horizon_days": "horizon-days",
	"today":        "today",
	"ephemeral":    "ephemeral",
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, toml or json)")
	fs.String("data-dir", "./data", "directory holding the data files")
	fs.Int64("quota-bytes", DefaultQuotaBytes, "size limit of the primary store in bytes (0 disables)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.Int("horizon-days", calculator.DefaultHorizonDays, "days ahead a payment counts as upcoming")
	fs.String("today", "", "override today's date (YYYY-MM-DD)")
	fs.Bool("ephemeral", false, "keep all data in memory only")
}

// Load reads the configuration. fs must have been set up with RegisterFlags
// and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("data_dir", "./data")
	v.SetDefault("quota_bytes", DefaultQuotaBytes)
	v.SetDefault("log_level", "info")
	v.SetDefault("horizon_days", calculator.DefaultHorizonDays)
	v.SetDefault("today", "")
	v.SetDefault("ephemeral", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, flag := range keys {
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if !c.Ephemeral && strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.QuotaBytes < 0 {
		errs = append(errs, fmt.Errorf("quota_bytes must not be negative, got %d", c.QuotaBytes))
	}
	if c.HorizonDays < 0 {
		errs = append(errs, fmt.Errorf("horizon_days must not be negative, got %d", c.HorizonDays))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Today != "" {
		if _, err := civil.ParseDate(c.Today); err != nil {
			errs = append(errs, fmt.Errorf("today must be YYYY-MM-DD: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// TodayDate returns the configured override, or the local date of now.
func (c *Config) TodayDate(now time.Time) civil.Date {
	if c.Today != "" {
		if d, err := civil.ParseDate(c.Today); err == nil {
			return d
		}
	}
	return civil.DateOf(now)
}

// BoltPath is the primary store file.
func (c *Config) BoltPath() string {
	return filepath.Join(c.DataDir, "subsync.bolt")
}

// LegacyDir is the directory of the legacy store.
func (c *Config) LegacyDir() string {
	return filepath.Join(c.DataDir, "legacy")
}
