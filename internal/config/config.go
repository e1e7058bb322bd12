// Package config loads the pipeline configuration from a YAML file with
// LITESTAT_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mgcha85/lgd-liteStat/internal/lake"
)

// RemoteConfig locates the remote wide-column store.
type RemoteConfig struct {
	Region          string `mapstructure:"region"`
	HistoryTable    string `mapstructure:"history_table"`
	InspectionTable string `mapstructure:"inspection_table"`
}

// LakeConfig controls the local parquet lake.
type LakeConfig struct {
	RootDir       string  `mapstructure:"root_dir"`
	ProductFilter bool    `mapstructure:"product_filter"`
	FilterFPRate  float64 `mapstructure:"filter_fp_rate"`
	BucketHistory bool    `mapstructure:"bucket_history"`
}

// StoreConfig locates the statistics store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ScheduleConfig sets the daily trigger for the scheduler subcommand.
type ScheduleConfig struct {
	// At is the local wall-clock trigger time, "HH:MM".
	At string `mapstructure:"at"`
}

// Config is the full pipeline configuration.
type Config struct {
	Facilities []string       `mapstructure:"facilities"`
	Remote     RemoteConfig   `mapstructure:"remote"`
	Lake       LakeConfig     `mapstructure:"lake"`
	Store      StoreConfig    `mapstructure:"store"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
	LogLevel   string         `mapstructure:"log_level"`
}

// Load reads the configuration. An empty path falls back to litestat.yaml
// in the working directory or /etc/litestat. Environment variables of the
// form LITESTAT_REMOTE_HISTORY_TABLE override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("lake.root_dir", "./lake")
	v.SetDefault("lake.product_filter", true)
	v.SetDefault("lake.filter_fp_rate", 0.01)
	v.SetDefault("lake.bucket_history", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "litestat.db")
	v.SetDefault("schedule.at", "02:00")
	v.SetDefault("log_level", "info")
	v.SetDefault("remote.region", "ap-northeast-2")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("litestat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/litestat")
	}

	v.SetEnvPrefix("LITESTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine when everything comes from env or defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the settings the pipeline cannot run without. Missing
// remote table mappings are fatal here rather than at first scan.
func (c *Config) Validate() error {
	var errs []error

	if c.Remote.HistoryTable == "" {
		errs = append(errs, fmt.Errorf("remote.history_table is required"))
	}
	if c.Remote.InspectionTable == "" {
		errs = append(errs, fmt.Errorf("remote.inspection_table is required"))
	}
	if len(c.Facilities) == 0 {
		errs = append(errs, fmt.Errorf("at least one facility code is required"))
	}
	for _, f := range c.Facilities {
		if err := lake.ValidateFacility(f); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		errs = append(errs, fmt.Errorf("schedule.at %q is not HH:MM", c.Schedule.At))
	}
	if c.Lake.FilterFPRate <= 0 || c.Lake.FilterFPRate >= 1 {
		errs = append(errs, fmt.Errorf("lake.filter_fp_rate must be in (0, 1), got %v", c.Lake.FilterFPRate))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured log level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
