package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/zonewatch/internal/domain/model"
)

func ev(vehicle string) model.Event {
	return model.Event{VehicleID: vehicle, ZoneID: "Z1", Kind: model.Entered}
}

func TestMemory_BasicOperations(t *testing.T) {
	q := NewMemory(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, ev("V1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}
	if got := <-q.Dequeue(); got.VehicleID != "V1" {
		t.Errorf("expected V1, got %s", got.VehicleID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestMemory_Capacity(t *testing.T) {
	q := NewMemory(WithCapacity(2))
	ctx := context.Background()

	for _, v := range []string{"V1", "V2"} {
		if err := q.Enqueue(ctx, ev(v)); err != nil {
			t.Fatalf("enqueue %s: %v", v, err)
		}
	}
	if err := q.Enqueue(ctx, ev("V3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	q := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, ev("V1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemory_CloseDrains(t *testing.T) {
	q := NewMemory(WithCapacity(4))
	ctx := context.Background()
	_ = q.Enqueue(ctx, ev("V1"))
	_ = q.Enqueue(ctx, ev("V2"))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected closed")
	}
	if err := q.Enqueue(ctx, ev("V3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []string
	for e := range q.Dequeue() {
		got = append(got, e.VehicleID)
	}
	if len(got) != 2 || got[0] != "V1" || got[1] != "V2" {
		t.Errorf("expected [V1 V2], got %v", got)
	}
}

func TestMemory_ConcurrentProducers(t *testing.T) {
	const producers, perProducer = 10, 50
	q := NewMemory(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(ctx, ev(fmt.Sprintf("V%d-%d", p, i))); err != nil {
					t.Errorf("enqueue: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	if l := q.Len(); l != producers*perProducer {
		t.Errorf("expected %d queued, got %d", producers*perProducer, l)
	}
}
