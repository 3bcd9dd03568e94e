package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"zaprelay/pkg/lifecycle"
	"zaprelay/pkg/logger"
)

const heartbeatTimeout = 30 * time.Second

// HeartbeatFunc proves outbound capability against the session, typically a
// device-identity probe plus a presence announce.
type HeartbeatFunc func(ctx context.Context) error

// StaleFunc runs when no inbound activity was seen for the whole watchdog
// threshold. The default handler terminates the process so an external
// supervisor can restart it.
type StaleFunc func(elapsed time.Duration)

// Monitor runs two independent checks on one shared interval: a heartbeat
// whose failures are only logged, and a watchdog over the time since the
// last inbound event.
type Monitor struct {
	interval  time.Duration
	threshold time.Duration
	heartbeat HeartbeatFunc
	onStale   StaleFunc
	lastEvent atomic.Int64
	runner    *lifecycle.LoopRunner
}

func NewMonitor(interval, threshold time.Duration, heartbeat HeartbeatFunc, onStale StaleFunc) *Monitor {
	if onStale == nil {
		onStale = func(elapsed time.Duration) {
			logger.FatalCF("liveness", "No inbound activity within watchdog threshold, terminating", map[string]interface{}{
				logger.FieldElapsed: elapsed.String(),
			})
		}
	}
	m := &Monitor{
		interval:  interval,
		threshold: threshold,
		heartbeat: heartbeat,
		onStale:   onStale,
		runner:    lifecycle.NewLoopRunner(),
	}
	// A fresh process starts its watchdog window at startup, not at zero.
	m.MarkActivity()
	return m
}

func (m *Monitor) Start() {
	if !m.runner.StartTicker(m.interval, m.check) {
		return
	}
	logger.InfoCF("liveness", "Liveness monitor started", map[string]interface{}{
		"interval":  m.interval.String(),
		"threshold": m.threshold.String(),
	})
}

func (m *Monitor) Stop() {
	if m.runner.Stop() {
		logger.InfoC("liveness", "Liveness monitor stopped")
	}
}

// MarkActivity records that an inbound event was just observed. Safe to call
// from any goroutine.
func (m *Monitor) MarkActivity() {
	m.lastEvent.Store(time.Now().UnixNano())
}

func (m *Monitor) LastActivity() time.Time {
	return time.Unix(0, m.lastEvent.Load())
}

func (m *Monitor) check() {
	elapsed := time.Since(m.LastActivity())
	if elapsed > m.threshold {
		logger.ErrorCF("liveness", "Watchdog threshold exceeded", map[string]interface{}{
			logger.FieldElapsed: elapsed.String(),
			"threshold":         m.threshold.String(),
		})
		m.onStale(elapsed)
		return
	}

	if m.heartbeat == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
	defer cancel()
	if err := m.heartbeat(ctx); err != nil {
		// A symptom, not independently actionable: the watchdog catches
		// sustained unresponsiveness.
		logger.WarnCF("liveness", "Heartbeat failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}
