package pipeline

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"zaprelay/pkg/bus"
	"zaprelay/pkg/logger"
	"zaprelay/pkg/webhook"
)

const transcribeTimeout = 30 * time.Second

// Transcriber converts a decrypted voice payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Deliverer posts one normalized event downstream.
type Deliverer interface {
	Deliver(ctx context.Context, evt webhook.Event) error
}

// ImageBuffer collects images per sender for debounced grouping.
type ImageBuffer interface {
	Add(senderID string, img webhook.Image)
}

// Pipeline consumes the inbound bus on a single goroutine and fans events
// out to their handling path. Handler bodies are sequential; external calls
// (transcription, delivery) run on a bounded pool of workers so the consumer
// loop is never blocked by a slow dependency.
type Pipeline struct {
	bus         *bus.EventBus
	transcriber Transcriber
	images      ImageBuffer
	dispatcher  Deliverer

	sem    chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func New(eventBus *bus.EventBus, transcriber Transcriber, images ImageBuffer, dispatcher Deliverer) *Pipeline {
	return &Pipeline{
		bus:         eventBus,
		transcriber: transcriber,
		images:      images,
		dispatcher:  dispatcher,
		// Bound external-call fan-out to keep goroutine growth in check.
		sem: make(chan struct{}, 32),
	}
}

func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()

	logger.InfoC("pipeline", "Inbound pipeline started")
}

// Stop halts consumption and waits for in-flight transcriptions and
// deliveries to finish or time out.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	logger.InfoC("pipeline", "Inbound pipeline stopped")
}

func (p *Pipeline) run(ctx context.Context) {
	for {
		evt, ok := p.bus.Consume(ctx)
		if !ok {
			return
		}
		p.handle(ctx, evt)
	}
}

func (p *Pipeline) handle(ctx context.Context, evt bus.InboundEvent) {
	r, text := classify(evt)

	switch r {
	case routeText:
		p.deliverAsync(ctx, webhook.NewTextEvent(evt.SenderID, text))

	case routeVoice:
		p.transcribeAsync(ctx, evt)

	case routeImage:
		p.images.Add(evt.SenderID, webhook.Image{
			Filename: evt.Filename,
			Mimetype: evt.MimeType,
			Base64:   base64.StdEncoding.EncodeToString(evt.Media),
		})

	default:
		if evt.Kind == bus.KindChat {
			logger.DebugCF("pipeline", "Empty message body, nothing to forward", map[string]interface{}{
				logger.FieldSenderID: evt.SenderID,
			})
			return
		}
		logger.WarnCF("pipeline", "Unsupported message type dropped", map[string]interface{}{
			logger.FieldSenderID:  evt.SenderID,
			logger.FieldEventType: string(evt.Kind),
			"mime_type":           evt.MimeType,
		})
	}
}

// deliverAsync hands one event to a worker. Delivery failures are already
// logged by the dispatcher; the event is simply gone.
func (p *Pipeline) deliverAsync(ctx context.Context, evt webhook.Event) {
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		_ = p.dispatcher.Deliver(ctx, evt)
	}()
}

// transcribeAsync transcribes a voice note and, on success, delivers the
// audio event. A failed transcription drops the event: no partial payload
// is ever forwarded, and there is no retry.
func (p *Pipeline) transcribeAsync(ctx context.Context, evt bus.InboundEvent) {
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()

		callCtx, cancel := context.WithTimeout(ctx, transcribeTimeout)
		defer cancel()

		transcript, err := p.transcriber.Transcribe(callCtx, evt.Media, evt.MimeType)
		if err != nil {
			logger.ErrorCF("pipeline", "Voice transcription failed, dropping event", map[string]interface{}{
				logger.FieldSenderID: evt.SenderID,
				logger.FieldError:    err.Error(),
			})
			return
		}

		audio := base64.StdEncoding.EncodeToString(evt.Media)
		_ = p.dispatcher.Deliver(ctx, webhook.NewAudioEvent(evt.SenderID, audio, transcript))
	}()
}
