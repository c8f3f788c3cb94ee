// Package replay evaluates recorded position files offline with the same
// pipeline the service runs on every pass.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/okian/zonewatch/internal/adapters/feed"
	"github.com/okian/zonewatch/internal/adapters/repository"
	"github.com/okian/zonewatch/internal/adapters/sink"
	service "github.com/okian/zonewatch/internal/app"
	"github.com/okian/zonewatch/internal/domain/filter"
	"github.com/okian/zonewatch/internal/domain/geofence"
	"github.com/okian/zonewatch/internal/domain/normalize"
	"github.com/okian/zonewatch/internal/domain/zone"
	"github.com/okian/zonewatch/pkg/logger"
)

// ErrNoFiles is returned when Config.Files is empty.
var ErrNoFiles = errors.New("no input files")

// Run replays every file in order and writes events to out. It stops at
// the first failed file; state committed by earlier files is kept.
func Run(ctx context.Context, cfg *Config, out io.Writer) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	log := logger.Get().Named("replay")

	if len(cfg.Files) == 0 {
		return stats, ErrNoFiles
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	zones, err := zone.LoadFile(ctx, cfg.ZonesPath)
	if err != nil {
		return stats, err
	}
	decode, err := feed.DecoderFor(cfg.Format, cfg.Layout, loc)
	if err != nil {
		return stats, err
	}
	tsPolicy, err := normalize.ParsePolicy(cfg.TimestampPolicy)
	if err != nil {
		return stats, err
	}
	seenPolicy, err := geofence.ParsePolicy(cfg.FirstSeenPolicy)
	if err != nil {
		return stats, err
	}
	f, err := filter.New(cfg.Filter)
	if err != nil {
		return stats, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return stats, err
	}

	engineOpts := []geofence.Option{geofence.WithFirstSeenPolicy(seenPolicy)}
	if cfg.TimeOrder {
		engineOpts = append(engineOpts, geofence.WithTimeOrder())
	}
	normOpts := []normalize.Option{normalize.WithPolicy(tsPolicy), normalize.WithLocation(loc)}
	if cfg.Layout != "" {
		normOpts = append(normOpts, normalize.WithLayout(cfg.Layout))
	}
	events := sink.NewJSONLinesSink(out)

	log.Info(ctx, "starting replay",
		logger.String("zones", cfg.ZonesPath),
		logger.Int("zoneCount", zones.Len()),
		logger.String("state", cfg.StatePath),
		logger.Int("files", len(cfg.Files)),
		logger.Bool("dryRun", cfg.DryRun),
	)

	for _, path := range cfg.Files {
		tr := service.New(feed.NewFileSource(path, decode), zones, store, events,
			service.WithLogger(log.With(logger.String("file", path))),
			service.WithNormalizer(normalize.New(normOpts...)),
			service.WithFilter(f),
			service.WithEngineOptions(engineOpts...),
		)
		res, err := tr.RunPass(ctx)
		if err != nil {
			return finish(stats), fmt.Errorf("%s: %w", path, err)
		}
		stats.Files++
		stats.Records += res.Records
		stats.Fixes += res.Fixes
		stats.Filtered += res.Filtered
		stats.Events += len(res.Events)
		for _, n := range res.Dropped {
			stats.Dropped += n
		}
	}

	stats = finish(stats)
	log.Info(ctx, "replay completed",
		logger.Int("files", stats.Files),
		logger.Int("records", stats.Records),
		logger.Int("fixes", stats.Fixes),
		logger.Int("dropped", stats.Dropped),
		logger.Int("filtered", stats.Filtered),
		logger.Int("events", stats.Events),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// openStore returns the state store. A dry run starts from the state file
// but keeps every save in memory.
func openStore(ctx context.Context, cfg *Config) (repository.Store, error) {
	if cfg.StatePath == "" {
		return repository.NewMemoryStore(), nil
	}
	file := repository.NewFileStore(cfg.StatePath)
	if !cfg.DryRun {
		return file, nil
	}
	st, found, err := file.Load(ctx)
	if err != nil {
		return nil, err
	}
	mem := repository.NewMemoryStore()
	if found {
		if err := mem.Save(ctx, st); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

func finish(s Stats) Stats {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}
