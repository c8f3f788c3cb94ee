// Package dedupe remembers which events have already been delivered. A feed
// that re-serves an older position recreates a transition with the same
// vehicle, zone, kind and time; the repeat is not notified again.
package dedupe

import (
	"container/list"
	"context"
	"sync"

	"github.com/okian/zonewatch/internal/domain/model"
)

// DefaultMaxSize is the bound used when WithMaxSize is not given.
const DefaultMaxSize = 50000

// Deduper records delivered event keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. The check and the insert are atomic.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so that a failed delivery can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// memoryDeduper keeps keys in insertion order for oldest-first eviction.
type memoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// New returns an in-memory Deduper.
func New(opts ...Option) Deduper {
	d := &memoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *memoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *memoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *memoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// SeenEvent is SeenAndRecord keyed by the event identity.
func SeenEvent(ctx context.Context, d Deduper, e model.Event) bool {
	return d.SeenAndRecord(ctx, e.Key())
}
