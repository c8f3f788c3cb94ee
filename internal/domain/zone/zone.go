// Package zone holds the immutable set of named zones a pass evaluates against.
//
// Zones are loaded from a GeoJSON FeatureCollection. Each feature must carry a
// Polygon or MultiPolygon geometry and an identifier in properties.id; the
// feature-level id is used when the property is absent. Load order is kept and
// is the iteration order of every pass.
package zone

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/okian/zonewatch/internal/domain/geo"
)

// Zone is a named geometry.
type Zone struct {
	ID    string
	Shape geo.Shape
}

// Store answers containment queries for a fixed set of zones.
type Store struct {
	zones []Zone
	index map[string]int
}

// New builds a Store from zones in the given order.
func New(zones ...Zone) (*Store, error) {
	s := &Store{
		zones: make([]Zone, 0, len(zones)),
		index: make(map[string]int, len(zones)),
	}
	for _, z := range zones {
		if strings.TrimSpace(z.ID) == "" {
			return nil, fmt.Errorf("%w: empty zone id", ErrLoad)
		}
		if _, dup := s.index[z.ID]; dup {
			return nil, fmt.Errorf("%w: %w: %q", ErrLoad, ErrDuplicateZone, z.ID)
		}
		s.index[z.ID] = len(s.zones)
		s.zones = append(s.zones, z)
	}
	return s, nil
}

// Load parses a GeoJSON FeatureCollection.
func Load(_ context.Context, r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrLoad, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoad, err)
	}

	zones := make([]Zone, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f)
		if id == "" {
			return nil, fmt.Errorf("%w: feature %d has no id", ErrLoad, i)
		}
		shape, ok := geo.NewShape(f.Geometry)
		if !ok {
			return nil, fmt.Errorf("%w: zone %q: unsupported or empty geometry", ErrLoad, id)
		}
		zones = append(zones, Zone{ID: id, Shape: shape})
	}
	return New(zones...)
}

// LoadFile opens path and calls Load.
func LoadFile(ctx context.Context, path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer func() { _ = f.Close() }()
	return Load(ctx, f)
}

func featureID(f *geojson.Feature) string {
	if v, ok := f.Properties["id"]; ok && v != nil {
		return idString(v)
	}
	if f.ID != nil {
		return idString(f.ID)
	}
	return ""
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Contains reports whether p is strictly inside the zone.
func (s *Store) Contains(zoneID string, p geo.Point) (bool, error) {
	i, ok := s.index[zoneID]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownZone, zoneID)
	}
	return s.zones[i].Shape.Contains(p), nil
}

// IDs returns zone ids in load order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.zones))
	for i, z := range s.zones {
		ids[i] = z.ID
	}
	return ids
}

// Zones returns the zones in load order.
func (s *Store) Zones() []Zone {
	out := make([]Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// Len returns the number of zones.
func (s *Store) Len() int { return len(s.zones) }
