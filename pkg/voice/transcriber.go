package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"zaprelay/pkg/logger"
)

const transcriptionModel = "whisper-large-v3"

// TranscriptionError covers every way a voice note can fail to become text:
// request failure, non-2xx API response, or an empty transcript.
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription failed: %s", e.Reason)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// GroqTranscriber is a stateless adapter over Groq's OpenAI-compatible
// audio transcription endpoint. It requests the plain-text response format,
// so the body is the transcript itself.
type GroqTranscriber struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

func NewGroqTranscriber(apiKey, apiBase string) *GroqTranscriber {
	return &GroqTranscriber{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{},
	}
}

func (t *GroqTranscriber) IsAvailable() bool {
	return t.apiKey != ""
}

// Transcribe converts a decrypted voice payload into text. There is no
// retry: on failure the caller drops the event.
func (t *GroqTranscriber) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !t.IsAvailable() {
		return "", &TranscriptionError{Reason: "no API key configured"}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "voice"+extensionFor(mimeType))
	if err != nil {
		return "", &TranscriptionError{Reason: "failed to build request body", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return "", &TranscriptionError{Reason: "failed to build request body", Err: err}
	}
	if err := writer.WriteField("model", transcriptionModel); err != nil {
		return "", &TranscriptionError{Reason: "failed to build request body", Err: err}
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return "", &TranscriptionError{Reason: "failed to build request body", Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &TranscriptionError{Reason: "failed to build request body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBase+"/audio/transcriptions", &buf)
	if err != nil {
		return "", &TranscriptionError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &TranscriptionError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TranscriptionError{Reason: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TranscriptionError{
			Reason: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	transcript := strings.TrimSpace(string(body))
	if transcript == "" {
		return "", &TranscriptionError{Reason: "empty transcript"}
	}

	logger.DebugCF("voice", "Voice note transcribed", map[string]interface{}{
		"transcript_length": len(transcript),
	})
	return transcript, nil
}

// extensionFor picks the upload filename extension from the payload mime
// type. WhatsApp voice notes arrive as "audio/ogg; codecs=opus".
func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return ".ogg"
	case strings.HasPrefix(mimeType, "audio/mp4"), strings.HasPrefix(mimeType, "audio/m4a"):
		return ".m4a"
	case strings.HasPrefix(mimeType, "audio/mpeg"):
		return ".mp3"
	case strings.HasPrefix(mimeType, "audio/wav"):
		return ".wav"
	default:
		return ".ogg"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	return s[:maxLen]
}
