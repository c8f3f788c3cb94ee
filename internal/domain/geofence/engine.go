// Package geofence turns position fixes into containment transition events.
//
// For each fix, every zone is tested in store order and the result is
// compared with the recorded containment of the (vehicle, zone) pair:
//
//	outside -> inside   Entered
//	inside  -> outside  Exited
//	same                nothing
//
// On the first run of a deployment no transitions are reported; pairs that
// are inside are annotated InitialInside instead. Evaluate performs no I/O.
package geofence

import (
	"fmt"
	"slices"

	"github.com/okian/zonewatch/internal/domain/geo"
	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/internal/domain/state"
	"github.com/okian/zonewatch/internal/domain/zone"
)

// Evaluate runs one pass. st is updated in place and returned; a nil st
// starts from empty. On error the returned state must be discarded.
func Evaluate(fixes []model.Fix, zones *zone.Store, st state.State, isFirstRun bool, opts ...Option) (model.Batch, state.State, error) {
	o := options{policy: PolicyRun}
	for _, opt := range opts {
		opt(&o)
	}
	if zones == nil || zones.Len() == 0 {
		return model.Batch{}, st, ErrNoZones
	}
	if st == nil {
		st = state.New()
	}
	if o.orderByTime {
		fixes = slices.Clone(fixes)
		slices.SortStableFunc(fixes, func(a, b model.Fix) int {
			return a.ObservedAt.Compare(b.ObservedAt)
		})
	}

	ids := zones.IDs()
	batch := model.Batch{Fixes: len(fixes)}
	for _, f := range fixes {
		st.Ensure(f.VehicleID)
		p := geo.Point{f.Longitude, f.Latitude}
		for _, id := range ids {
			inside, err := zones.Contains(id, p)
			if err != nil {
				return model.Batch{}, st, fmt.Errorf("geofence: vehicle %q: %w", f.VehicleID, err)
			}
			if kind, ok := decide(st.Lookup(f.VehicleID, id), inside, isFirstRun, o.policy); ok {
				batch.Events = append(batch.Events, model.Event{
					VehicleID:  f.VehicleID,
					ZoneID:     id,
					Kind:       kind,
					ObservedAt: f.ObservedAt,
					Latitude:   f.Latitude,
					Longitude:  f.Longitude,
				})
			}
			st.Set(f.VehicleID, id, inside)
		}
	}
	return batch, st, nil
}

// decide returns the event for a pair moving from prev to inside.
func decide(prev state.Entry, inside, isFirstRun bool, policy Policy) (model.EventKind, bool) {
	if isFirstRun || (policy == PolicyPair && !prev.IsKnown()) {
		return model.InitialInside, inside
	}
	was := prev.Inside()
	switch {
	case inside && !was:
		return model.Entered, true
	case !inside && was:
		return model.Exited, true
	default:
		return 0, false
	}
}

// Summary counts events by kind.
func Summary(b model.Batch) map[model.EventKind]int {
	out := make(map[model.EventKind]int, 3)
	for _, e := range b.Events {
		out[e.Kind]++
	}
	return out
}
