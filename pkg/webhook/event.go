package webhook

// Event is the normalized payload posted downstream, one of three variants
// discriminated by Type. Field names are the downstream automation contract.
type Event struct {
	Telefone string `json:"telefone"`
	Type     string `json:"type"`

	// text
	Mensagem string `json:"mensagem,omitempty"`

	// audio
	Audio           string `json:"audio,omitempty"`
	TextoTranscrito string `json:"textoTranscrito,omitempty"`

	// imagens
	Imagens []Image `json:"imagens,omitempty"`
}

type Image struct {
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
	Base64   string `json:"base64"`
}

const (
	TypeText   = "text"
	TypeAudio  = "audio"
	TypeImages = "imagens"
)

func NewTextEvent(sender, message string) Event {
	return Event{Telefone: sender, Type: TypeText, Mensagem: message}
}

func NewAudioEvent(sender, audioBase64, transcript string) Event {
	return Event{Telefone: sender, Type: TypeAudio, Audio: audioBase64, TextoTranscrito: transcript}
}

func NewImageGroupEvent(sender string, images []Image) Event {
	return Event{Telefone: sender, Type: TypeImages, Imagens: images}
}
