// Package sink stores the events and pass reports produced by the tracker.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/metrics"
)

// Sink names.
const (
	NameSpreadsheet = "spreadsheet"
	NamePostgres    = "postgres"
	NameLog         = "log"
	NameJSONLines   = "jsonl"
)

// Sink accepts the event batch of a committed pass.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []model.Event) error
}

// Recorder stores one line per pass, successful or not.
type Recorder interface {
	RecordPass(ctx context.Context, r PassReport) error
}

// PassReport summarises one pass.
type PassReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	// Records is the number of raw records received from the feed.
	Records int
	Events  int
	// Err is nil for a successful pass.
	Err error
}

// OK reports whether the pass succeeded.
func (r PassReport) OK() bool { return r.Err == nil }

// Status returns metrics.StatusOK or metrics.StatusError.
func (r PassReport) Status() string {
	if r.OK() {
		return metrics.StatusOK
	}
	return metrics.StatusError
}

// Multi writes to every sink in order and stops at the first failing one,
// so sinks after it see nothing from a pass that will be retried.
type Multi []Sink

// Name implements Sink.
func (m Multi) Name() string { return "multi" }

// Write implements Sink.
func (m Multi) Write(ctx context.Context, events []model.Event) error {
	for _, s := range m {
		if err := s.Write(ctx, events); err != nil {
			metrics.RecordSinkWrite(s.Name(), metrics.StatusError)
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
		metrics.RecordSinkWrite(s.Name(), metrics.StatusOK)
	}
	return nil
}

// RecordPass forwards r to every sink that is also a Recorder.
func (m Multi) RecordPass(ctx context.Context, r PassReport) error {
	var errs []error
	for _, s := range m {
		if rec, ok := s.(Recorder); ok {
			if err := rec.RecordPass(ctx, r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
