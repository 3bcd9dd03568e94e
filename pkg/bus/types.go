package bus

import "time"

// EventKind is the coarse classification assigned when the raw session
// notification is converted, before the pipeline's routing rules run.
type EventKind string

const (
	KindChat  EventKind = "chat"
	KindVoice EventKind = "voice"
	KindImage EventKind = "image"
	KindOther EventKind = "other"
)

// InboundEvent is one inbound message, immutable after publication.
// Media holds decrypted payload bytes for voice and image events.
type InboundEvent struct {
	SenderID   string
	Kind       EventKind
	Body       string
	Media      []byte
	MimeType   string
	Filename   string
	PushName   string
	ReceivedAt time.Time
}
