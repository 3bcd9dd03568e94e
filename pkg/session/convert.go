package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"zaprelay/pkg/bus"
	"zaprelay/pkg/logger"
)

const downloadTimeout = 60 * time.Second

// handleMessage turns one raw message notification into at most one bus
// event. Group and broadcast chats are not relayed.
func (s *Supervisor) handleMessage(evt *events.Message) {
	s.markActivity()

	if evt.Info.IsFromMe {
		return
	}
	if evt.Info.Chat.Server == types.GroupServer || evt.Info.Chat.Server == types.BroadcastServer {
		logger.DebugCF("session", "Skipping group/broadcast message", map[string]interface{}{
			"chat": evt.Info.Chat.String(),
		})
		return
	}

	inbound, ok := s.convert(evt)
	if !ok {
		return
	}

	logger.InfoCF("session", "Message received", map[string]interface{}{
		logger.FieldSenderID:  inbound.SenderID,
		logger.FieldEventType: string(inbound.Kind),
		logger.FieldPreview:   preview(inbound.Body, 50),
	})

	s.bus.Publish(inbound)
}

func (s *Supervisor) convert(evt *events.Message) (bus.InboundEvent, bool) {
	msg := evt.Message
	if msg == nil {
		return bus.InboundEvent{}, false
	}

	inbound := bus.InboundEvent{
		SenderID:   evt.Info.Sender.User,
		PushName:   evt.Info.PushName,
		ReceivedAt: evt.Info.Timestamp,
	}

	if audio := msg.GetAudioMessage(); audio != nil && audio.GetPTT() {
		data, err := s.download(audio)
		if err != nil {
			logger.ErrorCF("session", "Failed to download voice note", map[string]interface{}{
				logger.FieldSenderID: inbound.SenderID,
				logger.FieldError:    err.Error(),
			})
			return bus.InboundEvent{}, false
		}
		inbound.Kind = bus.KindVoice
		inbound.Media = data
		inbound.MimeType = audio.GetMimetype()
		return inbound, true
	}

	if img := msg.GetImageMessage(); img != nil {
		data, err := s.download(img)
		if err != nil {
			logger.ErrorCF("session", "Failed to download image", map[string]interface{}{
				logger.FieldSenderID: inbound.SenderID,
				logger.FieldError:    err.Error(),
			})
			return bus.InboundEvent{}, false
		}
		inbound.Kind = bus.KindImage
		inbound.Body = img.GetCaption()
		inbound.Media = data
		inbound.MimeType = img.GetMimetype()
		inbound.Filename = imageFilename(evt.Info.ID, img.GetMimetype())
		return inbound, true
	}

	if text := extractText(msg); text != "" {
		inbound.Kind = bus.KindChat
		inbound.Body = text
		return inbound, true
	}

	// Stickers, documents, videos, reactions: classified as unsupported
	// downstream, where the drop is logged.
	inbound.Kind = bus.KindOther
	return inbound, true
}

func (s *Supervisor) download(msg whatsmeow.DownloadableMessage) ([]byte, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("no session client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()
	return client.Download(ctx, msg)
}

func extractText(msg *waE2E.Message) string {
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func imageFilename(messageID string, mimeType string) string {
	ext := ".jpg"
	switch {
	case strings.HasPrefix(mimeType, "image/png"):
		ext = ".png"
	case strings.HasPrefix(mimeType, "image/webp"):
		ext = ".webp"
	case strings.HasPrefix(mimeType, "image/gif"):
		ext = ".gif"
	}
	return fmt.Sprintf("wa_%s%s", strings.ToLower(messageID), ext)
}

func preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return ""
	}
	return s[:maxLen]
}
