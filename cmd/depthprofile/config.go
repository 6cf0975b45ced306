package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cpbynwol/go-depthprofile"
)

const (
	defaultCatalogDriver = "sqlite"
	defaultCatalogDSN    = "data.db"
	defaultCatalogTable  = depthprofile.DefaultTable
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

// Config holds the command configuration.
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Profile ProfileConfig `mapstructure:"profile"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type CatalogConfig struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	Table       string        `mapstructure:"table"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

type CacheConfig struct {
	Fields   int `mapstructure:"fields"`
	Profiles int `mapstructure:"profiles"`
}

type ProfileConfig struct {
	Samples int `mapstructure:"samples"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from v's flags, the environment, and an
// optional config file.
func LoadConfig(v *viper.Viper) (*Config, error) {
	v.SetDefault("catalog.driver", defaultCatalogDriver)
	v.SetDefault("catalog.dsn", defaultCatalogDSN)
	v.SetDefault("catalog.table", defaultCatalogTable)
	v.SetDefault("catalog.load_timeout", 10*time.Second)
	v.SetDefault("cache.fields", 16)
	v.SetDefault("cache.profiles", 256)
	v.SetDefault("profile.samples", 100)
	v.SetDefault("server.addr", ":9009")
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("depthprofile")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// DEPTHPROFILE_CATALOG_DSN → catalog.dsn
	v.SetEnvPrefix("DEPTHPROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	var errs []string

	switch c.Catalog.Driver {
	case "sqlite", "pgx", "json":
	default:
		errs = append(errs, fmt.Sprintf("catalog.driver must be sqlite, pgx, or json, got %q", c.Catalog.Driver))
	}
	if c.Catalog.DSN == "" {
		errs = append(errs, "catalog.dsn is required")
	}
	if c.Catalog.Table == "" {
		errs = append(errs, "catalog.table is required")
	}
	if c.Catalog.LoadTimeout <= 0 {
		errs = append(errs, "catalog.load_timeout must be positive")
	}
	if c.Cache.Fields <= 0 {
		errs = append(errs, fmt.Sprintf("cache.fields must be positive, got %d", c.Cache.Fields))
	}
	if c.Cache.Profiles <= 0 {
		errs = append(errs, fmt.Sprintf("cache.profiles must be positive, got %d", c.Cache.Profiles))
	}
	if c.Profile.Samples < 2 || c.Profile.Samples > depthprofile.MaxSamples {
		errs = append(errs, fmt.Sprintf("profile.samples must be 2-%d, got %d", depthprofile.MaxSamples, c.Profile.Samples))
	}
	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
