package sink

import (
	"context"

	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink returns a LogSink. A nil l uses the global logger.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Get()
	}
	return &LogSink{logger: l.Named("events")}
}

// Name implements Sink.
func (s *LogSink) Name() string { return NameLog }

// Write implements Sink.
func (s *LogSink) Write(ctx context.Context, events []model.Event) error {
	for _, e := range events {
		s.logger.Info(ctx, "zone event",
			logger.String("vehicle_id", e.VehicleID),
			logger.String("zone_id", e.ZoneID),
			logger.String("kind", e.Kind.String()),
			logger.Time("observed_at", e.ObservedAt),
			logger.Float64("latitude", e.Latitude),
			logger.Float64("longitude", e.Longitude))
	}
	return nil
}

// RecordPass implements Recorder.
func (s *LogSink) RecordPass(ctx context.Context, r PassReport) error {
	fields := []logger.Field{
		logger.String("pass_id", r.ID),
		logger.String("status", r.Status()),
		logger.Int("records", r.Records),
		logger.Int("events", r.Events),
		logger.Duration("took", r.FinishedAt.Sub(r.StartedAt)),
	}
	if r.Err != nil {
		s.logger.Warn(ctx, "pass recorded", append(fields, logger.Error(r.Err))...)
		return nil
	}
	s.logger.Info(ctx, "pass recorded", fields...)
	return nil
}
