package geofence

import "errors"

var (
	// ErrNoZones is returned when evaluation is attempted without zones.
	ErrNoZones = errors.New("geofence: no zones loaded")
	// ErrInvalidPolicy is returned by ParsePolicy for unknown names.
	ErrInvalidPolicy = errors.New("geofence: invalid first-seen policy")
)
