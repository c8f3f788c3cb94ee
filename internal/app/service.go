// Package service runs geofence passes: it fetches positions, evaluates them
// against the zone set, commits the resulting events and state, and hands
// committed events to the notification queue.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/zonewatch/internal/adapters/feed"
	"github.com/okian/zonewatch/internal/adapters/repository"
	"github.com/okian/zonewatch/internal/adapters/sink"
	"github.com/okian/zonewatch/internal/domain/filter"
	"github.com/okian/zonewatch/internal/domain/geofence"
	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/internal/domain/normalize"
	"github.com/okian/zonewatch/internal/domain/zone"
	"github.com/okian/zonewatch/pkg/logger"
	"github.com/okian/zonewatch/pkg/metrics"
)

// DefaultInterval is the delay between background passes.
const DefaultInterval = 5 * time.Minute

// Enqueuer accepts committed events for asynchronous notification.
type Enqueuer interface {
	Enqueue(ctx context.Context, e model.Event) error
	Len() int
}

// Result describes a committed pass.
type Result struct {
	ID         string         `json:"pass_id"`
	FirstRun   bool           `json:"first_run"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Records    int            `json:"records"`
	Fixes      int            `json:"fixes"`
	Dropped    map[string]int `json:"dropped,omitempty"`
	Filtered   int            `json:"filtered"`
	Events     []model.Event  `json:"events"`
}

// Stats is a snapshot of the tracker for monitoring.
type Stats struct {
	Running     bool       `json:"running"`
	Interval    string     `json:"interval"`
	Zones       int        `json:"zones"`
	Passes      int64      `json:"passes"`
	Failures    int64      `json:"failures"`
	LastPassID  string     `json:"last_pass_id,omitempty"`
	LastPassAt  *time.Time `json:"last_pass_at,omitempty"`
	LastStatus  string     `json:"last_status,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastEvents  int        `json:"last_events"`
	LastFixes   int        `json:"last_fixes"`
	QueueLength int        `json:"queue_length"`
}

// Tracker owns the pass pipeline. At most one pass runs at a time.
type Tracker struct {
	// passMu serializes passes so state load and save never interleave.
	passMu sync.Mutex

	source     feed.Source
	zones      *zone.Store
	store      repository.Store
	sink       sink.Sink
	recorder   sink.Recorder
	queue      Enqueuer
	normalizer *normalize.Normalizer
	filter     *filter.Filter
	engineOpts []geofence.Option
	interval   time.Duration
	now        func() time.Time
	logger     logger.Logger

	mu      sync.RWMutex
	stats   Stats
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a Tracker. The sink doubles as the pass recorder when it
// implements sink.Recorder.
func New(source feed.Source, zones *zone.Store, store repository.Store, out sink.Sink, opts ...Option) *Tracker {
	t := &Tracker{
		source:     source,
		zones:      zones,
		store:      store,
		sink:       out,
		normalizer: normalize.New(),
		interval:   DefaultInterval,
		now:        time.Now,
	}
	if r, ok := out.(sink.Recorder); ok {
		t.recorder = r
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = logger.Get().Named("tracker")
	}
	if zones != nil {
		metrics.UpdateZonesLoaded(zones.Len())
	}
	return t
}

// RunPass executes one full pass. On error nothing is persisted and the
// returned error wraps ErrPass.
func (t *Tracker) RunPass(ctx context.Context) (Result, error) {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	res := Result{ID: uuid.NewString(), StartedAt: t.now()}
	log := t.logger.With(logger.String("pass_id", res.ID))
	log.Info(ctx, "pass started")

	err := t.run(ctx, &res, log)
	res.FinishedAt = t.now()
	elapsed := res.FinishedAt.Sub(res.StartedAt)

	t.record(ctx, res, err, log)

	if err != nil {
		metrics.RecordPass(metrics.StatusError, float64(elapsed.Milliseconds()))
		log.Error(ctx, "pass failed",
			logger.Error(err),
			logger.Int("records", res.Records),
			logger.Duration("duration", elapsed),
		)
		return Result{}, fmt.Errorf("%w: %w", ErrPass, err)
	}

	metrics.RecordPass(metrics.StatusOK, float64(elapsed.Milliseconds()))
	log.Info(ctx, "pass finished",
		logger.Int("records", res.Records),
		logger.Int("fixes", res.Fixes),
		logger.Any("dropped", res.Dropped),
		logger.Int("filtered", res.Filtered),
		logger.Int("events", len(res.Events)),
		logger.Bool("first_run", res.FirstRun),
		logger.Duration("duration", elapsed),
	)

	t.notify(ctx, res.Events, log)
	return res, nil
}

func (t *Tracker) run(ctx context.Context, res *Result, log logger.Logger) error {
	raws, err := t.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	res.Records = len(raws)

	fixes, report, err := t.normalizer.All(raws)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	for reason, n := range report.Dropped {
		metrics.RecordFixesDropped(reason, n)
	}
	res.Dropped = report.Dropped

	fixes, filtered, err := t.filter.Apply(fixes)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	metrics.RecordFixesFiltered(filtered)
	res.Filtered = filtered

	prev, found, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	res.FirstRun = !found
	if res.FirstRun {
		log.Info(ctx, "no persisted state, treating pass as first run")
	}

	batch, next, err := geofence.Evaluate(fixes, t.zones, prev, res.FirstRun, t.engineOpts...)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	res.Fixes = batch.Fixes
	res.Events = batch.Events

	if err := t.sink.Write(ctx, batch.Events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	if err := t.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	metrics.RecordFixes(batch.Fixes)
	for _, e := range batch.Events {
		metrics.RecordEvent(e.Kind.String())
	}
	metrics.UpdateVehiclesTracked(len(next))
	return nil
}

// record stores the pass line and updates stats. A recorder failure is
// logged; the pass outcome stands.
func (t *Tracker) record(ctx context.Context, res Result, passErr error, log logger.Logger) {
	report := sink.PassReport{
		ID:         res.ID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Records:    res.Records,
		Events:     len(res.Events),
		Err:        passErr,
	}
	if t.recorder != nil {
		if err := t.recorder.RecordPass(ctx, report); err != nil {
			log.Warn(ctx, "record pass failed", logger.Error(err))
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Passes++
	t.stats.LastPassID = res.ID
	finished := res.FinishedAt
	t.stats.LastPassAt = &finished
	t.stats.LastStatus = report.Status()
	if passErr != nil {
		t.stats.Failures++
		t.stats.LastError = passErr.Error()
		return
	}
	t.stats.LastError = ""
	t.stats.LastEvents = len(res.Events)
	t.stats.LastFixes = res.Fixes
}

// notify is best effort: a full or closed queue drops the notification,
// never the pass.
func (t *Tracker) notify(ctx context.Context, events []model.Event, log logger.Logger) {
	if t.queue == nil || len(events) == 0 {
		return
	}
	for _, e := range events {
		if err := t.queue.Enqueue(ctx, e); err != nil {
			metrics.RecordNotification("dropped")
			log.Warn(ctx, "notification not queued",
				logger.Error(err),
				logger.String("vehicle_id", e.VehicleID),
				logger.String("zone_id", e.ZoneID),
			)
		}
	}
	metrics.UpdateNotifyQueueSize(t.queue.Len())
}

// Start runs a pass immediately and then every interval until Stop is
// called or ctx is done. Calling Start on a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	t.logger.Info(ctx, "tracker started",
		logger.Duration("interval", t.interval),
		logger.Int("zones", t.zones.Len()),
	)
	go t.loop(loopCtx, t.done)
}

func (t *Tracker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		// Errors are logged by RunPass; the next tick retries.
		_, _ = t.RunPass(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits for an in-flight pass to return.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done
	t.logger.Info(context.Background(), "tracker stopped")
}

// Stats returns a snapshot of pass counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	s := t.stats
	s.Running = t.running
	t.mu.RUnlock()

	s.Interval = t.interval.String()
	s.Zones = t.zones.Len()
	if t.queue != nil {
		s.QueueLength = t.queue.Len()
	}
	return s
}

// Zones returns the loaded zones in evaluation order.
func (t *Tracker) Zones() []zone.Zone {
	return t.zones.Zones()
}

// VehicleState is the persisted containment of one vehicle.
type VehicleState struct {
	VehicleID string          `json:"vehicle_id"`
	Zones     map[string]bool `json:"zones"`
	Inside    []string        `json:"inside"`
}

// Vehicle reads the persisted state for one vehicle.
func (t *Tracker) Vehicle(ctx context.Context, vehicleID string) (VehicleState, error) {
	st, _, err := t.store.Load(ctx)
	if err != nil {
		return VehicleState{}, fmt.Errorf("load state: %w", err)
	}
	if !st.Known(vehicleID) {
		return VehicleState{}, fmt.Errorf("%w: %q", ErrUnknownVehicle, vehicleID)
	}
	return VehicleState{
		VehicleID: vehicleID,
		Zones:     st.Zones(vehicleID),
		Inside:    st.Inside(vehicleID),
	}, nil
}
