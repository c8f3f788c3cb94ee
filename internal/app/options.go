package service

import (
	"time"

	"github.com/okian/zonewatch/internal/adapters/sink"
	"github.com/okian/zonewatch/internal/domain/filter"
	"github.com/okian/zonewatch/internal/domain/geofence"
	"github.com/okian/zonewatch/internal/domain/normalize"
	"github.com/okian/zonewatch/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithInterval sets the delay between background passes.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithNormalizer replaces the default strict normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(t *Tracker) {
		if n != nil {
			t.normalizer = n
		}
	}
}

// WithFilter skips fixes that do not match f.
func WithFilter(f *filter.Filter) Option {
	return func(t *Tracker) {
		t.filter = f
	}
}

// WithEngineOptions passes options through to geofence.Evaluate.
func WithEngineOptions(opts ...geofence.Option) Option {
	return func(t *Tracker) {
		t.engineOpts = append(t.engineOpts, opts...)
	}
}

// WithRecorder overrides the pass recorder. By default the sink is used
// when it implements sink.Recorder.
func WithRecorder(r sink.Recorder) Option {
	return func(t *Tracker) {
		t.recorder = r
	}
}

// WithNotifications enqueues every committed event on q.
func WithNotifications(q Enqueuer) Option {
	return func(t *Tracker) {
		t.queue = q
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
