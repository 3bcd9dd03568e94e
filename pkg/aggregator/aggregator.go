package aggregator

import (
	"sync"
	"time"

	"zaprelay/pkg/logger"
	"zaprelay/pkg/webhook"
)

// Aggregator buffers images per sender and emits one grouped event after a
// quiet period. Every new image from the same sender restarts that sender's
// countdown, so a burst of N images produces a single event.
type Aggregator struct {
	mu      sync.Mutex
	delay   time.Duration
	buffers map[string]*senderBuffer
	emit    func(webhook.Event)
	stopped bool
}

type senderBuffer struct {
	images []webhook.Image
	timer  *time.Timer
}

// New creates an aggregator that calls emit with one image-group event per
// flushed sender buffer. emit runs on the flush timer's goroutine.
func New(delay time.Duration, emit func(webhook.Event)) *Aggregator {
	return &Aggregator{
		delay:   delay,
		buffers: make(map[string]*senderBuffer),
		emit:    emit,
	}
}

// Add appends img to the sender's buffer and reschedules the flush timer.
// Cancelling and rearming under the same lock as the append keeps at most
// one live timer per sender.
func (a *Aggregator) Add(senderID string, img webhook.Image) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	buf := a.buffers[senderID]
	if buf == nil {
		buf = &senderBuffer{}
		a.buffers[senderID] = buf
	}
	buf.images = append(buf.images, img)

	if buf.timer != nil {
		buf.timer.Stop()
	}
	buf.timer = time.AfterFunc(a.delay, func() {
		a.flush(senderID)
	})

	logger.DebugCF("aggregator", "Image buffered", map[string]interface{}{
		logger.FieldSenderID:   senderID,
		logger.FieldImageCount: len(buf.images),
	})
}

// flush atomically takes and clears the sender's buffer, then emits one
// event with every buffered image in arrival order. An image that slipped in
// between the timer firing and the buffer being taken rides along in this
// flush; its replacement timer later finds an empty slot and does nothing.
func (a *Aggregator) flush(senderID string) {
	a.mu.Lock()
	buf := a.buffers[senderID]
	if buf == nil {
		a.mu.Unlock()
		return
	}
	delete(a.buffers, senderID)
	images := buf.images
	a.mu.Unlock()

	if len(images) == 0 {
		return
	}

	logger.InfoCF("aggregator", "Flushing image group", map[string]interface{}{
		logger.FieldSenderID:   senderID,
		logger.FieldImageCount: len(images),
	})
	a.emit(webhook.NewImageGroupEvent(senderID, images))
}

// Stop cancels all pending flush timers and discards buffered images.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for senderID, buf := range a.buffers {
		if buf.timer != nil {
			buf.timer.Stop()
		}
		delete(a.buffers, senderID)
	}
}
