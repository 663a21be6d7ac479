package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskSetLimit(t *testing.T) {
	ts := NewTaskSet(2)
	release := make(chan struct{})

	for i := 0; i < 2; i++ {
		if !ts.Go(func(context.Context) { <-release }) {
			t.Fatalf("task %d rejected", i)
		}
	}
	if ts.Go(func(context.Context) {}) {
		t.Fatal("third task accepted over limit")
	}
	if ts.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ts.Len())
	}

	close(release)
	ts.Wait()
	if ts.Len() != 0 {
		t.Fatalf("Len = %d after wait", ts.Len())
	}
}

func TestTaskSetDrainWaits(t *testing.T) {
	ts := NewTaskSet(4)
	var done atomic.Int32
	for i := 0; i < 3; i++ {
		ts.Go(func(context.Context) {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		})
	}

	if err := ts.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if done.Load() != 3 {
		t.Fatalf("done = %d, want 3", done.Load())
	}
	if ts.Go(func(context.Context) {}) {
		t.Fatal("task accepted after drain")
	}
}

func TestTaskSetDrainDeadlineCancelsTasks(t *testing.T) {
	ts := NewTaskSet(1)
	cancelled := make(chan struct{})
	ts.Go(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := ts.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drain err = %v, want deadline", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("abandoned task was not cancelled")
	}
}

func TestTaskSetRecoversPanic(t *testing.T) {
	ts := NewTaskSet(1)
	ts.Go(func(context.Context) { panic("boom") })
	ts.Wait()
	if !ts.Go(func(context.Context) {}) {
		t.Fatal("slot not released after panic")
	}
	ts.Wait()
}
