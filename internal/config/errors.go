package config

import "errors"

var (
	// ErrLoadConfig wraps failures reading the config file or environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNoFeed is returned when neither feed_url nor feed_path is set.
	ErrNoFeed = errors.New("one of feed_url or feed_path is required")
)
