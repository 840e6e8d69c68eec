package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

type countingRefresher struct {
	calls       int
	err         error
	hadDeadline bool
}

func (r *countingRefresher) Refresh(ctx context.Context) (weather.Snapshot, error) {
	r.calls++
	_, r.hadDeadline = ctx.Deadline()
	return weather.Snapshot{Generation: uint64(r.calls), State: weather.StateReady}, r.err
}

func TestSchedulerDisabled(t *testing.T) {
	r := &countingRefresher{}
	s := New(0, time.Second, r)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if n := s.scheduler.Len(); n != 0 {
		t.Fatalf("expected no jobs, got %d", n)
	}
}

func TestSchedulerRegistersJob(t *testing.T) {
	r := &countingRefresher{}
	s := New(time.Hour, time.Second, r)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if n := s.scheduler.Len(); n != 1 {
		t.Fatalf("expected one job, got %d", n)
	}
	if r.calls != 0 {
		t.Fatalf("refresh must wait for the first interval, got %d calls", r.calls)
	}
}

func TestSchedulerRunRefreshesWithDeadline(t *testing.T) {
	r := &countingRefresher{err: weather.ErrNoSession}
	s := New(time.Hour, time.Second, r)

	s.run()
	s.run()

	if r.calls != 2 {
		t.Fatalf("expected 2 refreshes, got %d", r.calls)
	}
	if !r.hadDeadline {
		t.Fatalf("expected refresh context with deadline")
	}
}
