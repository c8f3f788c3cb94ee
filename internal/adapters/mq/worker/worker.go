// Package worker delivers queued events to a notifier in the background.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/zonewatch/internal/domain/dedupe"
	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
	"github.com/okian/zonewatch/pkg/metrics"
)

// Defaults for Pool.
const (
	DefaultWorkers  = 2
	defaultRetries  = 2
	defaultBackoff  = 500 * time.Millisecond
	defaultTimeout  = 10 * time.Second
	statusDelivered = "delivered"
	statusFailed    = "failed"
)

// Queue is the receive side of the event queue.
type Queue interface {
	Dequeue() <-chan model.Event
	Close() error
}

// Notifier delivers one event.
type Notifier interface {
	Notify(ctx context.Context, e model.Event) error
}

// Pool runs workers that drain the queue into the notifier. Events whose
// key was already delivered are skipped.
type Pool struct {
	size     int
	queue    Queue
	notifier Notifier
	deduper  dedupe.Deduper

	retries int
	backoff time.Duration
	timeout time.Duration
	logger  logger.Logger

	wg      sync.WaitGroup
	started bool
}

// NewPool returns a pool of size workers. size < 1 means DefaultWorkers.
// A nil deduper disables duplicate suppression.
func NewPool(size int, q Queue, n Notifier, d dedupe.Deduper, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultWorkers
	}
	p := &Pool{
		size:     size,
		queue:    q,
		notifier: n,
		deduper:  d,
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}
	return p
}

// Start launches the workers. They stop when ctx is cancelled or the queue
// is closed and drained.
func (p *Pool) Start(ctx context.Context) {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, p.logger.Named("worker-"+strconv.Itoa(i)))
	}
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()
	events := p.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.UpdateNotifyQueueSize(len(events))
			if err := p.deliver(ctx, e); err != nil {
				log.Error(ctx, "notification failed",
					logger.String("vehicle_id", e.VehicleID),
					logger.String("zone_id", e.ZoneID),
					logger.String("kind", e.Kind.String()),
					logger.Error(err))
			}
		}
	}
}

// deliver sends e with retries. The dedupe key is released on failure so a
// later pass can deliver it again.
func (p *Pool) deliver(ctx context.Context, e model.Event) error {
	if p.deduper != nil && dedupe.SeenEvent(ctx, p.deduper, e) {
		metrics.RecordNotificationDuplicate()
		return nil
	}

	wait := p.backoff
	err := p.attempt(ctx, e)
	for retry := 0; err != nil && retry < p.retries; retry++ {
		select {
		case <-ctx.Done():
			return p.fail(ctx, e, ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
		err = p.attempt(ctx, e)
	}
	if err != nil {
		return p.fail(ctx, e, err)
	}
	metrics.RecordNotification(statusDelivered)
	return nil
}

func (p *Pool) attempt(ctx context.Context, e model.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.notifier.Notify(ctx, e)
}

func (p *Pool) fail(ctx context.Context, e model.Event, err error) error {
	if p.deduper != nil {
		p.deduper.Unrecord(ctx, e.Key())
	}
	metrics.RecordNotification(statusFailed)
	return fmt.Errorf("notify %s: %w", e.Key(), err)
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
