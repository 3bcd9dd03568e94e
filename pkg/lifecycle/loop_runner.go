package lifecycle

import (
	"sync"
	"time"
)

// LoopRunner gives a background loop an idempotent start/stop lifecycle.
// Stop blocks until the loop has returned.
type LoopRunner struct {
	mu      sync.RWMutex
	wg      sync.WaitGroup
	running bool
	stopCh  chan struct{}
}

func NewLoopRunner() *LoopRunner {
	return &LoopRunner{}
}

func (r *LoopRunner) Start(loop func(stop <-chan struct{})) bool {
	if loop == nil {
		return false
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return false
	}
	stopCh := make(chan struct{})
	r.stopCh = stopCh
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		loop(stopCh)
	}()
	return true
}

// StartTicker runs tick every interval until Stop is called. The first tick
// fires after one full interval, not immediately.
func (r *LoopRunner) StartTicker(interval time.Duration, tick func()) bool {
	if tick == nil || interval <= 0 {
		return false
	}
	return r.Start(func(stop <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	})
}

func (r *LoopRunner) Stop() bool {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return false
	}
	stopCh := r.stopCh
	r.stopCh = nil
	r.running = false
	r.mu.Unlock()

	close(stopCh)
	r.wg.Wait()
	return true
}

func (r *LoopRunner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
