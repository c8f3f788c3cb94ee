package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/zonewatch/internal/domain/model"
)

// PostgresSink stores events in zone_events and pass reports in passes.
// Re-writing an event that is already stored is a no-op.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink returns a sink on a migrated database.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return NamePostgres }

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, events []model.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zone_events (vehicle_id, zone_id, kind, observed_at, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vehicle_id, zone_id, kind, observed_at) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrWrite, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range events {
		if _, err = stmt.ExecContext(ctx, e.VehicleID, e.ZoneID, e.Kind.String(), e.ObservedAt, e.Latitude, e.Longitude); err != nil {
			return fmt.Errorf("%w: insert %s/%s: %w", ErrWrite, e.VehicleID, e.ZoneID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrWrite, err)
	}
	return nil
}

// RecordPass implements Recorder.
func (s *PostgresSink) RecordPass(ctx context.Context, r PassReport) error {
	msg := ""
	if r.Err != nil {
		msg = r.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passes (id, started_at, finished_at, status, message, records, events)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.StartedAt, r.FinishedAt, r.Status(), msg, r.Records, r.Events)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecord, err)
	}
	return nil
}
