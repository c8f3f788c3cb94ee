package notify

import "errors"

var (
	// ErrPublish is returned when a notification is not acknowledged.
	ErrPublish = errors.New("notify: publish")
	// ErrTimeout is returned when the broker does not answer in time.
	ErrTimeout = errors.New("notify: timeout")
	// ErrConnect is returned when the broker cannot be reached.
	ErrConnect = errors.New("notify: connect")
)
