package sink

import "errors"

var (
	// ErrWrite is returned when events cannot be stored.
	ErrWrite = errors.New("sink: write events")
	// ErrRecord is returned when a pass report cannot be stored.
	ErrRecord = errors.New("sink: record pass")
	// ErrUnknownSink is returned by Build for unsupported sink names.
	ErrUnknownSink = errors.New("sink: unknown sink")
)
