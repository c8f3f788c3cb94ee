package service

import "errors"

// Sentinel errors returned by the Tracker.
var (
	// ErrPass wraps any failure that aborted a pass. Nothing was persisted.
	ErrPass = errors.New("pass failed")
	// ErrUnknownVehicle is returned for a vehicle absent from the state.
	ErrUnknownVehicle = errors.New("unknown vehicle")
)
