package logger

const (
	FieldError      = "error"
	FieldSenderID   = "sender_id"
	FieldEventType  = "event_type"
	FieldPreview    = "preview"
	FieldState      = "state"
	FieldStatus     = "status"
	FieldImageCount = "image_count"
	FieldElapsed    = "elapsed"
)
