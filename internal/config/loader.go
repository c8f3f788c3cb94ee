package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment conventions.
const (
	EnvPrefix = "ZONEWATCH_"
	EnvFile   = EnvPrefix + "CONFIG"
)

var listKeys = map[string]struct{}{ //nolint:gochecknoglobals // read-only lookup
	"event_sinks": {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ZONEWATCH_CONFIG is set
//  3. env (prefix ZONEWATCH_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ZONEWATCH_FEED_URL -> feed_url. Underscores are kept to match the
	// flat koanf tags. List values are comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	normalise(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalise(c *Config) {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.FeedFormat = strings.ToLower(strings.TrimSpace(c.FeedFormat))
	c.TimestampPolicy = strings.ToLower(strings.TrimSpace(c.TimestampPolicy))
	c.FirstSeenPolicy = strings.ToLower(strings.TrimSpace(c.FirstSeenPolicy))
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))

	sinks := c.EventSinks[:0]
	for _, s := range c.EventSinks {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sinks = append(sinks, s)
		}
	}
	c.EventSinks = sinks
}

// Validate checks field rules and the settings that depend on each other.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.FeedURL == "" && c.FeedPath == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNoFeed)
	}
	if c.UsesPostgres() && c.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres_dsn is required by the configured backend or sinks", ErrInvalidConfig)
	}
	if c.UsesSpreadsheet() && c.SpreadsheetPath == "" {
		return fmt.Errorf("%w: spreadsheet_path is required by the spreadsheet sink", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timestamp_location: %w", ErrInvalidConfig, err)
	}
	return nil
}
