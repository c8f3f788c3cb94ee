// Package config defines the service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named by
// ZONEWATCH_CONFIG, then ZONEWATCH_* environment variables.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// PollIntervalS is the delay between passes in seconds.
	PollIntervalS int `koanf:"poll_interval_s" validate:"min=1"`

	// ZonesPath points to the GeoJSON FeatureCollection of zones.
	ZonesPath string `koanf:"zones_path" validate:"required"`

	// Feed settings. Exactly one of FeedURL and FeedPath is used; FeedURL
	// wins when both are set.
	FeedFormat   string `koanf:"feed_format" validate:"oneof=json gtfsrt"`
	FeedURL      string `koanf:"feed_url" validate:"omitempty,url"`
	FeedPath     string `koanf:"feed_path"`
	FeedAPIKey   string `koanf:"feed_api_key"`
	FeedTimeoutS int    `koanf:"feed_timeout_s" validate:"min=1"`
	FeedRetries  int    `koanf:"feed_retries" validate:"min=0,max=10"`

	// Fix normalisation.
	TimestampLayout   string `koanf:"timestamp_layout" validate:"required"`
	TimestampLocation string `koanf:"timestamp_location" validate:"required"`
	TimestampPolicy   string `koanf:"timestamp_policy" validate:"oneof=strict drop"`

	// Engine behaviour.
	FirstSeenPolicy string `koanf:"first_seen_policy" validate:"oneof=run pair"`
	TimeOrder       bool   `koanf:"time_order"`
	FixFilter       string `koanf:"fix_filter"`

	// State persistence.
	StateBackend string `koanf:"state_backend" validate:"oneof=file postgres memory"`
	StatePath    string `koanf:"state_path" validate:"required_if=StateBackend file"`
	PostgresDSN  string `koanf:"postgres_dsn"`

	// Event sinks, any of spreadsheet, postgres, log.
	EventSinks      []string `koanf:"event_sinks" validate:"dive,oneof=spreadsheet postgres log"`
	SpreadsheetPath string   `koanf:"spreadsheet_path"`

	// Notifications. An empty broker disables them.
	MQTTBroker      string `koanf:"mqtt_broker" validate:"omitempty,url"`
	MQTTTopic       string `koanf:"mqtt_topic" validate:"required_with=MQTTBroker"`
	MQTTClientID    string `koanf:"mqtt_client_id"`
	MQTTUsername    string `koanf:"mqtt_username"`
	MQTTPassword    string `koanf:"mqtt_password"`
	NotifyQueueSize int    `koanf:"notify_queue_size" validate:"min=1"`
	NotifyWorkers   int    `koanf:"notify_workers" validate:"min=1"`

	// DedupeSize bounds the delivered-event cache; 0 means unbounded.
	DedupeSize int `koanf:"dedupe_size" validate:"min=0"`
}

// New returns a Config with defaults. The context is accepted first to
// follow the project convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8000",
		PollIntervalS:     300,
		ZonesPath:         "/data/UNIDADES.geojson",
		FeedFormat:        "json",
		FeedTimeoutS:      30,
		FeedRetries:       3,
		TimestampLayout:   time.DateTime,
		TimestampLocation: "Local",
		TimestampPolicy:   "strict",
		FirstSeenPolicy:   "run",
		StateBackend:      "file",
		StatePath:         "/data/estado_veiculos.json",
		EventSinks:        []string{"spreadsheet", "log"},
		SpreadsheetPath:   "/data/Base_Rastreio_Dedicados.xlsx",
		MQTTTopic:         "zonewatch/events",
		MQTTClientID:      "zonewatch",
		NotifyQueueSize:   10_000,
		NotifyWorkers:     2,
		DedupeSize:        50_000,
	}
}

// PollInterval returns the pass cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalS) * time.Second
}

// FeedTimeout returns the feed request timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.FeedTimeoutS) * time.Second
}

// Location resolves TimestampLocation.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimestampLocation)
}

// UsesPostgres reports whether any component needs PostgresDSN.
func (c *Config) UsesPostgres() bool {
	if c.StateBackend == "postgres" {
		return true
	}
	for _, s := range c.EventSinks {
		if s == "postgres" {
			return true
		}
	}
	return false
}

// UsesSpreadsheet reports whether the spreadsheet sink is configured.
func (c *Config) UsesSpreadsheet() bool {
	for _, s := range c.EventSinks {
		if s == "spreadsheet" {
			return true
		}
	}
	return false
}
