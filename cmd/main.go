package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/okian/zonewatch/internal/adapters/feed"
	"github.com/okian/zonewatch/internal/adapters/http/api"
	"github.com/okian/zonewatch/internal/adapters/mq/queue"
	"github.com/okian/zonewatch/internal/adapters/mq/worker"
	"github.com/okian/zonewatch/internal/adapters/notify"
	"github.com/okian/zonewatch/internal/adapters/postgres"
	"github.com/okian/zonewatch/internal/adapters/repository"
	"github.com/okian/zonewatch/internal/adapters/sink"
	service "github.com/okian/zonewatch/internal/app"
	"github.com/okian/zonewatch/internal/config"
	"github.com/okian/zonewatch/internal/domain/dedupe"
	"github.com/okian/zonewatch/internal/domain/filter"
	"github.com/okian/zonewatch/internal/domain/geofence"
	"github.com/okian/zonewatch/internal/domain/normalize"
	"github.com/okian/zonewatch/internal/domain/zone"
	"github.com/okian/zonewatch/pkg/logger"
	"github.com/okian/zonewatch/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout             = 10 * time.Second
	idleTimeout             = 60 * time.Second
	readHeaderTimeout       = 5 * time.Second
	shutdownTimeout         = 30 * time.Second
	queueMetricsInterval    = 5 * time.Second
	mqttDisconnectQuiesceMs = 250
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		stop()
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("invalid log_format: " + err.Error() + "\n")
	}
	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	err = run(ctx, cfg, loggerInstance)
	stop()
	if err != nil {
		loggerInstance.Error(context.Background(), "zonewatch exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the application, serves HTTP until ctx is done and shuts down.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(log)

	a.start(ctx)
	if a.queue != nil {
		go startQueueMetricsUpdater(ctx, a.queue)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(a.tracker).Router(),
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// application holds the wired components and what must be released.
type application struct {
	tracker *service.Tracker
	queue   *queue.Memory
	pool    *worker.Pool
	db      *sql.DB
	mqtt    mqtt.Client

	// stopPool ends the workers once close has drained the queue.
	stopPool context.CancelFunc
}

// build turns configuration into a ready tracker. Nothing is started.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (a *application, err error) {
	a = &application{}
	defer func() {
		if err != nil {
			a.close(log)
			a = nil
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return a, err
	}

	zones, err := zone.LoadFile(ctx, cfg.ZonesPath)
	if err != nil {
		return a, err
	}
	if zones.Len() == 0 {
		return a, fmt.Errorf("%s: %w", cfg.ZonesPath, geofence.ErrNoZones)
	}
	log.Info(ctx, "zones loaded", logger.String("path", cfg.ZonesPath), logger.Int("zones", zones.Len()))

	source, err := buildSource(cfg, loc, log)
	if err != nil {
		return a, err
	}

	if cfg.UsesPostgres() {
		if a.db, err = postgres.Open(ctx, cfg.PostgresDSN); err != nil {
			return a, err
		}
		if err = postgres.Migrate(a.db); err != nil {
			return a, err
		}
	}

	store, err := repository.Open(repository.Config{Backend: cfg.StateBackend, Path: cfg.StatePath, DB: a.db})
	if err != nil {
		return a, err
	}

	sinks, err := sink.Build(cfg.EventSinks, sink.Deps{
		SpreadsheetPath: cfg.SpreadsheetPath,
		Location:        loc,
		DB:              a.db,
		Logger:          log,
	})
	if err != nil {
		return a, err
	}
	for _, s := range sinks {
		if i, ok := s.(interface{ Init(context.Context) error }); ok {
			if err = i.Init(ctx); err != nil {
				return a, err
			}
		}
	}

	tsPolicy, err := normalize.ParsePolicy(cfg.TimestampPolicy)
	if err != nil {
		return a, err
	}
	seenPolicy, err := geofence.ParsePolicy(cfg.FirstSeenPolicy)
	if err != nil {
		return a, err
	}
	fixFilter, err := filter.New(cfg.FixFilter)
	if err != nil {
		return a, err
	}
	engineOpts := []geofence.Option{geofence.WithFirstSeenPolicy(seenPolicy)}
	if cfg.TimeOrder {
		engineOpts = append(engineOpts, geofence.WithTimeOrder())
	}

	opts := []service.Option{
		service.WithLogger(log.Named("tracker")),
		service.WithInterval(cfg.PollInterval()),
		service.WithNormalizer(normalize.New(
			normalize.WithLayout(cfg.TimestampLayout),
			normalize.WithLocation(loc),
			normalize.WithPolicy(tsPolicy),
		)),
		service.WithFilter(fixFilter),
		service.WithEngineOptions(engineOpts...),
	}

	if cfg.MQTTBroker != "" {
		a.mqtt, err = notify.Connect(ctx, notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, log.Named("mqtt"))
		if err != nil {
			return a, err
		}
		a.queue = queue.NewMemory(queue.WithCapacity(cfg.NotifyQueueSize))
		a.pool = worker.NewPool(cfg.NotifyWorkers, a.queue,
			notify.NewMQTTNotifier(a.mqtt, cfg.MQTTTopic),
			dedupe.New(dedupe.WithMaxSize(cfg.DedupeSize)),
			worker.WithLogger(log.Named("notify")),
		)
		opts = append(opts, service.WithNotifications(a.queue))
	}

	a.tracker = service.New(source, zones, store, sinks, opts...)
	return a, nil
}

func buildSource(cfg *config.Config, loc *time.Location, log logger.Logger) (feed.Source, error) {
	decode, err := feed.DecoderFor(cfg.FeedFormat, cfg.TimestampLayout, loc)
	if err != nil {
		return nil, err
	}
	if cfg.FeedURL == "" {
		return feed.NewFileSource(cfg.FeedPath, decode), nil
	}
	return feed.NewHTTPSource(cfg.FeedURL,
		feed.WithAPIKey(cfg.FeedAPIKey),
		feed.WithTimeout(cfg.FeedTimeout()),
		feed.WithRetries(cfg.FeedRetries),
		feed.WithDecoder(decode),
		feed.WithLogger(log.Named("feed")),
	), nil
}

// start launches the workers and the tracker loop. The workers outlive ctx
// so the events of the last pass are still delivered during close.
func (a *application) start(ctx context.Context) {
	if a.pool != nil {
		poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		a.stopPool = cancel
		a.pool.Start(poolCtx)
	}
	if a.tracker != nil {
		a.tracker.Start(ctx)
	}
}

// close stops components in reverse dependency order. It is safe on a
// partially built application.
func (a *application) close(log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.tracker != nil {
		a.tracker.Stop()
	}
	if a.pool != nil {
		if err := a.pool.Shutdown(ctx); err != nil {
			log.Warn(ctx, "notification workers did not drain", logger.Error(err))
		}
	}
	if a.stopPool != nil {
		a.stopPool()
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect(mqttDisconnectQuiesceMs)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn(ctx, "closing database failed", logger.Error(err))
		}
	}
}

// startQueueMetricsUpdater keeps the backlog gauge current between passes.
func startQueueMetricsUpdater(ctx context.Context, q *queue.Memory) {
	ticker := time.NewTicker(queueMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateNotifyQueueSize(q.Len())
		}
	}
}
