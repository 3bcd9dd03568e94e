package liveness

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdogFiresWhenQuiet(t *testing.T) {
	t.Parallel()

	var stale atomic.Int32
	m := NewMonitor(10*time.Millisecond, 30*time.Millisecond, nil, func(time.Duration) {
		stale.Add(1)
	})

	m.Start()
	defer m.Stop()

	time.Sleep(120 * time.Millisecond)

	if stale.Load() == 0 {
		t.Fatalf("watchdog did not fire during a quiet window")
	}
}

func TestWatchdogStaysQuietWithActivity(t *testing.T) {
	t.Parallel()

	var stale atomic.Int32
	m := NewMonitor(10*time.Millisecond, 50*time.Millisecond, nil, func(time.Duration) {
		stale.Add(1)
	})

	m.Start()
	defer m.Stop()

	for i := 0; i < 8; i++ {
		time.Sleep(15 * time.Millisecond)
		m.MarkActivity()
	}

	if stale.Load() != 0 {
		t.Fatalf("watchdog fired despite steady activity")
	}
}

func TestHeartbeatRunsOnInterval(t *testing.T) {
	t.Parallel()

	var beats atomic.Int32
	m := NewMonitor(10*time.Millisecond, time.Minute, func(ctx context.Context) error {
		beats.Add(1)
		return nil
	}, func(time.Duration) {})

	m.Start()
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)

	if beats.Load() < 3 {
		t.Fatalf("expected several heartbeats, got %d", beats.Load())
	}
}

func TestHeartbeatFailureDoesNotTriggerStale(t *testing.T) {
	t.Parallel()

	var stale atomic.Int32
	m := NewMonitor(10*time.Millisecond, time.Minute, func(ctx context.Context) error {
		return errors.New("presence announce failed")
	}, func(time.Duration) {
		stale.Add(1)
	})

	m.Start()
	defer m.Stop()

	time.Sleep(80 * time.Millisecond)

	if stale.Load() != 0 {
		t.Fatalf("heartbeat failure must not trip the watchdog")
	}
}

func TestMarkActivityUpdatesLastActivity(t *testing.T) {
	t.Parallel()

	m := NewMonitor(time.Minute, time.Hour, nil, func(time.Duration) {})
	before := m.LastActivity()
	time.Sleep(5 * time.Millisecond)
	m.MarkActivity()
	if !m.LastActivity().After(before) {
		t.Fatalf("MarkActivity did not advance the timestamp")
	}
}
