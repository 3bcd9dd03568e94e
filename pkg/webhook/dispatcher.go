package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"zaprelay/pkg/logger"
)

const (
	defaultTimeout = 5 * time.Second
	// Image groups carry base64 payloads that can run into megabytes.
	imageGroupTimeout = 10 * time.Second
)

// Dispatcher posts normalized events to the downstream webhook. Delivery is
// best-effort, at-most-once: a failed POST is logged and the event dropped.
type Dispatcher struct {
	url        string
	httpClient *http.Client
}

func NewDispatcher(url string) *Dispatcher {
	return &Dispatcher{
		url:        url,
		httpClient: &http.Client{},
	}
}

// Deliver issues one POST of evt's JSON encoding. Any 2xx response is
// success; everything else, including timeout, is an error. The dispatcher
// never retries.
func (d *Dispatcher) Deliver(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeoutFor(evt))
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		logger.ErrorCF("webhook", "Delivery failed", map[string]interface{}{
			logger.FieldSenderID:  evt.Telefone,
			logger.FieldEventType: evt.Type,
			logger.FieldError:     err.Error(),
		})
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.ErrorCF("webhook", "Delivery rejected", map[string]interface{}{
			logger.FieldSenderID:  evt.Telefone,
			logger.FieldEventType: evt.Type,
			logger.FieldStatus:    resp.StatusCode,
			"response":            string(respBody),
		})
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.DebugCF("webhook", "Event delivered", map[string]interface{}{
		logger.FieldSenderID:  evt.Telefone,
		logger.FieldEventType: evt.Type,
	})
	return nil
}

func (d *Dispatcher) timeoutFor(evt Event) time.Duration {
	if evt.Type == TypeImages {
		return imageGroupTimeout
	}
	return defaultTimeout
}
