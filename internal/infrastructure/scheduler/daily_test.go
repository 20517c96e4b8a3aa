package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestDailySchedulerRunsImmediatelyAndTicks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewDailyScheduler(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx, func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := runs.Load(); got < 2 {
		t.Fatalf("runs = %d, want an immediate run plus at least one tick", got)
	}
}

func TestDailySchedulerStopHaltsTicks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := NewDailyScheduler(10 * time.Millisecond)

	if err := s.Start(context.Background(), func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	settled := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got > settled+1 {
		t.Fatalf("runs kept firing after stop: %d -> %d", settled, got)
	}
}
