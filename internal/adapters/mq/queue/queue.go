// Package queue buffers committed events on their way to notifiers.
//
// Enqueue never blocks: a pass must not wait on slow subscribers, so a full
// queue rejects the event and the caller decides what to do with it.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/metrics"
)

// DefaultCapacity is used when WithCapacity is not given.
const DefaultCapacity = 10000

// Queue is a bounded FIFO of events.
type Queue interface {
	// Enqueue adds e without blocking. It returns ErrFull or ErrClosed when
	// the event was not accepted.
	Enqueue(ctx context.Context, e model.Event) error

	// Dequeue returns the receive side. It is closed once the queue is
	// closed and drained.
	Dequeue() <-chan model.Event

	Len() int
	Close() error
	IsClosed() bool
}

// Memory is a Queue backed by a buffered channel.
type Memory struct {
	events   chan model.Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewMemory returns an empty queue.
func NewMemory(opts ...Option) *Memory {
	q := &Memory{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan model.Event, q.capacity)
	metrics.UpdateNotifyQueueSize(0)
	return q
}

// Enqueue implements Queue.
func (q *Memory) Enqueue(ctx context.Context, e model.Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.events <- e:
		metrics.UpdateNotifyQueueSize(len(q.events))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrFull, q.capacity)
	}
}

// Dequeue implements Queue.
func (q *Memory) Dequeue() <-chan model.Event { return q.events }

// Len implements Queue.
func (q *Memory) Len() int {
	n := len(q.events)
	metrics.UpdateNotifyQueueSize(n)
	return n
}

// Close implements Queue. Events already queued remain readable.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.events)
		q.closed = true
	}
	return nil
}

// IsClosed implements Queue.
func (q *Memory) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
