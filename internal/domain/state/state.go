// Package state holds the per-(vehicle, zone) containment state carried
// between passes.
package state

import (
	"maps"
	"slices"
)

// State maps vehicle id to zone id to the last known containment.
//
// A missing vehicle has never been evaluated. A missing zone under a known
// vehicle is reported by Lookup as NeverSeen; callers decide whether that
// means outside.
type State map[string]map[string]bool

// Entry is the tagged containment of one (vehicle, zone) pair.
type Entry struct {
	known  bool
	inside bool
}

// NeverSeen is the entry of a pair that has no recorded containment.
func NeverSeen() Entry { return Entry{} }

// Known is the entry of a pair with a recorded containment.
func Known(inside bool) Entry { return Entry{known: true, inside: inside} }

// IsKnown reports whether the pair has been evaluated before.
func (e Entry) IsKnown() bool { return e.known }

// Inside reports the recorded containment; false for NeverSeen.
func (e Entry) Inside() bool { return e.known && e.inside }

func (e Entry) String() string {
	switch {
	case !e.known:
		return "never_seen"
	case e.inside:
		return "inside"
	default:
		return "outside"
	}
}

// New returns an empty state.
func New() State { return State{} }

// Lookup returns the entry for (vehicle, zone).
func (s State) Lookup(vehicle, zone string) Entry {
	zones, ok := s[vehicle]
	if !ok {
		return NeverSeen()
	}
	inside, ok := zones[zone]
	if !ok {
		return NeverSeen()
	}
	return Known(inside)
}

// Known reports whether vehicle has ever been evaluated.
func (s State) Known(vehicle string) bool {
	_, ok := s[vehicle]
	return ok
}

// Ensure inserts an empty zone map for vehicle if it is missing.
func (s State) Ensure(vehicle string) {
	if _, ok := s[vehicle]; !ok {
		s[vehicle] = map[string]bool{}
	}
}

// Set records containment for (vehicle, zone).
func (s State) Set(vehicle, zone string, inside bool) {
	s.Ensure(vehicle)
	s[vehicle][zone] = inside
}

// Clone returns a deep copy. Cloning nil yields an empty state.
func (s State) Clone() State {
	out := make(State, len(s))
	for v, zones := range s {
		out[v] = maps.Clone(zones)
		if out[v] == nil {
			out[v] = map[string]bool{}
		}
	}
	return out
}

// Vehicles returns the known vehicle ids in sorted order.
func (s State) Vehicles() []string {
	return slices.Sorted(maps.Keys(s))
}

// Zones returns the zone containment recorded for vehicle, or nil if the
// vehicle is unknown.
func (s State) Zones(vehicle string) map[string]bool {
	zones, ok := s[vehicle]
	if !ok {
		return nil
	}
	return maps.Clone(zones)
}

// Inside returns the zone ids vehicle is currently inside, sorted.
func (s State) Inside(vehicle string) []string {
	var ids []string
	for z, in := range s[vehicle] {
		if in {
			ids = append(ids, z)
		}
	}
	slices.Sort(ids)
	return ids
}
