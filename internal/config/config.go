package config

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

const (
	defaultPattern  = "**/*.uff"
	defaultCacheTTL = 30 * 24 * time.Hour
)

// Config carries all settings for the meterflow commands.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Import   ImportConfig   `yaml:"import"`
}

// DatabaseConfig points at the postgres instance holding imported readings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"METERFLOW_POSTGRES_DSN" validate:"required"`
}

// RedisConfig is optional. With an empty Addr the duplicate-digest cache is
// disabled and duplicate detection falls back to the database lookup alone.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"METERFLOW_REDIS_ADDR"`
	Password string `yaml:"password" env:"METERFLOW_REDIS_PASSWORD"`
	TTL      string `yaml:"ttl" env:"METERFLOW_REDIS_TTL"`
}

// LoggingConfig controls log verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"omitempty,oneof=console json"`
}

// ImportConfig holds defaults for the import command.
type ImportConfig struct {
	Pattern string `yaml:"pattern" env:"METERFLOW_IMPORT_PATTERN"`
}

// Load reads configuration from an optional YAML file plus environment
// variables and validates the result. An explicit path wins over the
// CONFIG_FILE env variable.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Import.Pattern = defaultPattern

	if err := loadInto(cfg, path); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Import.Pattern) == "" {
		cfg.Import.Pattern = defaultPattern
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return oops.
				Code("CONFIG_INVALID").
				Wrapf(err, "validating configuration")
		}
		return mapValidationError(c, verrs[0])
	}

	if _, err := c.parseCacheTTL(); err != nil {
		return oops.
			Code("CONFIG_INVALID").
			With("field", "redis.ttl").
			With("value", c.Redis.TTL).
			Hint("Use a Go duration such as 720h").
			Wrapf(err, "invalid redis ttl")
	}
	return nil
}

func mapValidationError(c *Config, fe validator.FieldError) error {
	switch {
	case fe.Tag() == "required" && fe.Namespace() == "Config.Database.DSN":
		return oops.
			Code("CONFIG_INVALID").
			With("field", "database.dsn").
			Hint("Set database.dsn in the config file or the METERFLOW_POSTGRES_DSN env variable").
			Errorf("missing database dsn")

	case fe.Tag() == "oneof" && fe.Namespace() == "Config.Logging.Format":
		return oops.
			Code("CONFIG_INVALID").
			With("field", "logging.format").
			With("value", c.Logging.Format).
			Hint("Supported formats: console, json").
			Errorf("unknown log format %q", c.Logging.Format)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("field", fe.Namespace()).
			With("tag", fe.Tag()).
			Errorf("validation failed for %s", fe.Namespace())
	}
}

// CacheTTL returns how long seen-file digests are retained in the cache.
func (c *Config) CacheTTL() time.Duration {
	ttl, err := c.parseCacheTTL()
	if err != nil || ttl <= 0 {
		return defaultCacheTTL
	}
	return ttl
}

func (c *Config) parseCacheTTL() (time.Duration, error) {
	raw := strings.TrimSpace(c.Redis.TTL)
	if raw == "" {
		return defaultCacheTTL, nil
	}
	return time.ParseDuration(raw)
}
