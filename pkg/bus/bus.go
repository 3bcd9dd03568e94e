package bus

import (
	"context"
	"sync"
	"time"

	"zaprelay/pkg/logger"
)

const publishTimeout = 2 * time.Second

// EventBus is a bounded inbound queue with a single consumer loop.
// Publishing never panics and never blocks longer than publishTimeout,
// even against a closed or saturated bus.
type EventBus struct {
	inbound   chan InboundEvent
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewEventBus() *EventBus {
	return &EventBus{
		inbound: make(chan InboundEvent, 100),
	}
}

func (b *EventBus) Publish(evt InboundEvent) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	ch := b.inbound
	b.mu.RUnlock()

	defer func() {
		if recover() != nil {
			logger.WarnCF("bus", "Publish on closed bus recovered", map[string]interface{}{
				logger.FieldSenderID:  evt.SenderID,
				logger.FieldEventType: string(evt.Kind),
			})
		}
	}()

	select {
	case ch <- evt:
	case <-time.After(publishTimeout):
		logger.ErrorCF("bus", "Publish timeout (queue full)", map[string]interface{}{
			logger.FieldSenderID:  evt.SenderID,
			logger.FieldEventType: string(evt.Kind),
		})
	}
}

// Consume blocks until an event is available, the bus is closed, or ctx is
// done. The second return is false when no further events will arrive.
func (b *EventBus) Consume(ctx context.Context) (InboundEvent, bool) {
	select {
	case evt, ok := <-b.inbound:
		return evt, ok
	case <-ctx.Done():
		return InboundEvent{}, false
	}
}

func (b *EventBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.inbound)
		b.mu.Unlock()
	})
}
