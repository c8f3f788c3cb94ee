// Package normalize turns raw feed records into fixes.
//
// A record missing the vehicle id, a coordinate or the timestamp is dropped
// and counted, as is a record the feed could not decode. A timestamp that is present but does not parse under the
// configured layout fails the whole batch under PolicyStrict and is dropped
// like a missing field under PolicyDrop.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/zonewatch/internal/domain/model"
)

// DefaultLayout matches the feed's "2006-01-02 15:04:05" timestamps.
const DefaultLayout = time.DateTime

// Drop reasons.
const (
	ReasonMissingField = "missing_field"
	ReasonBadTimestamp = "bad_timestamp"
	ReasonMalformed    = "malformed"
)

// Policy selects what an unparseable timestamp does.
type Policy string

// Timestamp policies.
const (
	PolicyStrict Policy = "strict"
	PolicyDrop   Policy = "drop"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyDrop:
		return p, nil
	case "":
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Report counts dropped records by reason.
type Report struct {
	Received int
	Dropped  map[string]int
}

// DroppedTotal sums every reason.
func (r Report) DroppedTotal() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

// Normalizer validates raw records.
type Normalizer struct {
	layout   string
	location *time.Location
	policy   Policy
	validate *validator.Validate
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithLayout sets the timestamp layout.
func WithLayout(layout string) Option {
	return func(n *Normalizer) {
		if layout != "" {
			n.layout = layout
		}
	}
}

// WithLocation sets the zone timestamps without an offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.location = loc
		}
	}
}

// WithPolicy sets the timestamp policy.
func WithPolicy(p Policy) Option {
	return func(n *Normalizer) {
		if p != "" {
			n.policy = p
		}
	}
}

// New creates a Normalizer. Defaults: DefaultLayout, UTC, PolicyStrict.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		layout:   DefaultLayout,
		location: time.UTC,
		policy:   PolicyStrict,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts one record. ok is false when the record is dropped;
// reason then names why. err is only set for a strict timestamp failure.
func (n *Normalizer) Normalize(r model.Raw) (fix model.Fix, ok bool, reason string, err error) {
	if r.Malformed != nil {
		return model.Fix{}, false, ReasonMalformed, nil
	}
	r.VehicleID = strings.TrimSpace(r.VehicleID)
	r.ObservedAt = strings.TrimSpace(r.ObservedAt)
	if verr := n.validate.Struct(r); verr != nil {
		var ve validator.ValidationErrors
		if errors.As(verr, &ve) {
			return model.Fix{}, false, ReasonMissingField, nil
		}
		return model.Fix{}, false, "", fmt.Errorf("validate record: %w", verr)
	}

	at, perr := time.ParseInLocation(n.layout, r.ObservedAt, n.location)
	if perr != nil {
		if n.policy == PolicyDrop {
			return model.Fix{}, false, ReasonBadTimestamp, nil
		}
		return model.Fix{}, false, "", fmt.Errorf("%w: vehicle %q: %w", ErrParseTimestamp, r.VehicleID, perr)
	}

	return model.Fix{
		VehicleID:  r.VehicleID,
		Latitude:   float64(*r.Latitude),
		Longitude:  float64(*r.Longitude),
		ObservedAt: at,
	}, true, "", nil
}

// All converts records in order. Under PolicyStrict the first unparseable
// timestamp aborts and no fixes are returned.
func (n *Normalizer) All(raws []model.Raw) ([]model.Fix, Report, error) {
	rep := Report{Received: len(raws), Dropped: map[string]int{}}
	fixes := make([]model.Fix, 0, len(raws))
	for _, r := range raws {
		fix, ok, reason, err := n.Normalize(r)
		if err != nil {
			return nil, rep, err
		}
		if !ok {
			rep.Dropped[reason]++
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, rep, nil
}
