package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsEveryTask(t *testing.T) {
	pool := NewPool(3)
	var processed int32
	seen := make([]int32, 20)

	err := pool.Run(context.Background(), 20, func(ctx context.Context, i int) error {
		atomic.AddInt32(&processed, 1)
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 20 {
		t.Errorf("Expected 20 tasks processed, got %d", processed)
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("task %d ran %d times", i, n)
		}
	}
}

func TestPool_RespectsLimit(t *testing.T) {
	pool := NewPool(2)
	var inFlight, peak int32

	err := pool.Run(context.Background(), 10, func(ctx context.Context, i int) error {
		now := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > 2 {
		t.Errorf("Expected at most 2 tasks in flight, saw %d", peak)
	}
}

func TestPool_FirstErrorCancelsTheRest(t *testing.T) {
	pool := NewPool(1)
	boom := errors.New("embedding quota")
	var started int32

	err := pool.Run(context.Background(), 10, func(ctx context.Context, i int) error {
		atomic.AddInt32(&started, 1)
		if i == 1 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected %v, got %v", boom, err)
	}
	if started >= 10 {
		t.Errorf("Expected remaining tasks to be skipped, %d started", started)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	pool := NewPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var started int32
	err := pool.Run(ctx, 5, func(ctx context.Context, i int) error {
		atomic.AddInt32(&started, 1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if started != 0 {
		t.Errorf("Expected no task to start, %d started", started)
	}
}

func TestNewPool_MinimumLimit(t *testing.T) {
	if NewPool(0).Limit() != 1 {
		t.Error("Expected a zero limit to be raised to 1")
	}
}
