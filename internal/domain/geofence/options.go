package geofence

import (
	"fmt"
	"strings"
)

// Policy decides how a pair without history is reported.
type Policy int

const (
	// PolicyRun treats a pair without history as outside unless the whole
	// run is the first one, in which case inside pairs are InitialInside.
	PolicyRun Policy = iota
	// PolicyPair reports the first evaluation of every (vehicle, zone) pair
	// as InitialInside when inside, and never as Entered.
	PolicyPair
)

func (p Policy) String() string {
	if p == PolicyPair {
		return "pair"
	}
	return "run"
}

// ParsePolicy maps a config value to a Policy. Empty means PolicyRun.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "run":
		return PolicyRun, nil
	case "pair":
		return PolicyPair, nil
	default:
		return PolicyRun, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

type options struct {
	policy      Policy
	orderByTime bool
}

// Option configures Evaluate.
type Option func(*options)

// WithFirstSeenPolicy selects how pairs without history are reported.
func WithFirstSeenPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithTimeOrder evaluates fixes sorted by observation time. Fixes with
// equal timestamps keep their input order.
func WithTimeOrder() Option {
	return func(o *options) { o.orderByTime = true }
}
