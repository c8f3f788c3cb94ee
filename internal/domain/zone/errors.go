package zone

import "errors"

// Sentinel kinds for zone store errors.
var (
	ErrLoad          = errors.New("zone store load failed")
	ErrDuplicateZone = errors.New("duplicate zone id")
	ErrUnknownZone   = errors.New("unknown zone")
)
