package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// tickSchedule fires every interval
type tickSchedule struct {
	interval time.Duration
}

func (s tickSchedule) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New("every monday", time.UTC, time.Minute, func(context.Context) {}); err == nil {
		t.Error("New() should reject an invalid spec")
	}
}

func TestNext(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	s, err := New("0 3 * * 1", loc, time.Minute, func(context.Context) {})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	s.Start()
	defer s.Stop(context.Background())

	next := s.Next().In(loc)
	if next.Weekday() != time.Monday || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("Next() = %v, want Monday 03:00 ICT", next)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	var runs int32
	ran := make(chan struct{}, 10)

	s := NewWithSchedule(tickSchedule{20 * time.Millisecond}, time.UTC, time.Second, func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
		ran <- struct{}{}
	})
	s.Start()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if atomic.LoadInt32(&runs) == 0 {
		t.Error("runs = 0")
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	var running, overlap int32
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	s := NewWithSchedule(tickSchedule{10 * time.Millisecond}, time.UTC, 0, func(ctx context.Context) {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		defer atomic.AddInt32(&running, -1)
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	s.Start()

	<-started
	// Let several ticks pass while the first run is blocked
	time.Sleep(100 * time.Millisecond)
	close(release)

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if atomic.LoadInt32(&overlap) != 0 {
		t.Error("runs overlapped")
	}
}

func TestStop_CancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	canceled := make(chan struct{})

	s := NewWithSchedule(tickSchedule{10 * time.Millisecond}, time.UTC, time.Hour, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		close(canceled)
	})
	s.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	select {
	case <-canceled:
	default:
		t.Error("running job context was not canceled")
	}
}
