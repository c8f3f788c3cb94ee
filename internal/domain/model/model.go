// Package model contains domain values passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw is a position record as delivered by a feed. Pointer fields
// distinguish an absent coordinate from a zero one. Malformed is set by
// decoders for a record that could not be read; such a record is dropped.
type Raw struct {
	VehicleID  string `json:"placa" validate:"required"`
	Latitude   *Coord `json:"latitude" validate:"required"`
	Longitude  *Coord `json:"longitude" validate:"required"`
	ObservedAt string `json:"dataposicao" validate:"required"`
	Malformed  error  `json:"-" validate:"-"`
}

// UnmarshalJSON implements json.Unmarshaler. Coordinates may be numbers or
// numeric strings; null, empty and blank strings leave them nil.
func (r *Raw) UnmarshalJSON(b []byte) error {
	var w struct {
		VehicleID  string          `json:"placa"`
		Latitude   json.RawMessage `json:"latitude"`
		Longitude  json.RawMessage `json:"longitude"`
		ObservedAt string          `json:"dataposicao"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	lat, err := ParseCoord(w.Latitude)
	if err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	lon, err := ParseCoord(w.Longitude)
	if err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	*r = Raw{VehicleID: w.VehicleID, Latitude: lat, Longitude: lon, ObservedAt: w.ObservedAt}
	return nil
}

// Coord is a decimal degree value.
type Coord float64

// ParseCoord reads a JSON number or numeric string; a decimal comma is
// accepted. An absent, null or blank value yields nil.
func ParseCoord(b json.RawMessage) (*Coord, error) {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(strings.ReplaceAll(str, ",", "."))
		if s == "" {
			return nil, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return CoordOf(v), nil
}

// CoordOf returns a pointer to v as a Coord.
func CoordOf(v float64) *Coord {
	c := Coord(v)
	return &c
}

// Fix is one validated vehicle position.
type Fix struct {
	VehicleID  string
	Latitude   float64
	Longitude  float64
	ObservedAt time.Time
}

// EventKind classifies a containment change.
type EventKind int

// Event kinds.
const (
	InitialInside EventKind = iota + 1
	Entered
	Exited
)

func (k EventKind) String() string {
	switch k {
	case InitialInside:
		return "initial_inside"
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	if k < InitialInside || k > Exited {
		return nil, fmt.Errorf("invalid event kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "initial_inside":
		*k = InitialInside
	case "entered":
		*k = Entered
	case "exited":
		*k = Exited
	default:
		return fmt.Errorf("invalid event kind %q", string(b))
	}
	return nil
}

// Event is a derived containment fact for a (vehicle, zone) pair.
type Event struct {
	VehicleID  string    `json:"vehicle_id"`
	ZoneID     string    `json:"zone_id"`
	Kind       EventKind `json:"kind"`
	ObservedAt time.Time `json:"observed_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// Key identifies an event for idempotent delivery.
func (e Event) Key() string {
	return e.VehicleID + "|" + e.ZoneID + "|" + e.Kind.String() + "|" + e.ObservedAt.UTC().Format(time.RFC3339Nano)
}

// Batch is the ordered output of one pass.
type Batch struct {
	Events []Event
	// Fixes is the number of fixes evaluated.
	Fixes int
}

// Count returns the number of events of kind k.
func (b Batch) Count(k EventKind) int {
	n := 0
	for _, e := range b.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}
