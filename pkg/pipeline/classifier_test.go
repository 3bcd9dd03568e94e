package pipeline

import (
	"testing"

	"zaprelay/pkg/bus"
)

func TestClassifyChatTrimsBody(t *testing.T) {
	t.Parallel()

	r, text := classify(bus.InboundEvent{Kind: bus.KindChat, Body: "  hello  "})
	if r != routeText || text != "hello" {
		t.Fatalf("unexpected classification: %v %q", r, text)
	}
}

func TestClassifyChatEmptyAfterTrimDrops(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "   ", "\n\t "} {
		if r, _ := classify(bus.InboundEvent{Kind: bus.KindChat, Body: body}); r != routeDrop {
			t.Fatalf("body %q should drop, got %v", body, r)
		}
	}
}

func TestClassifyVoice(t *testing.T) {
	t.Parallel()

	r, _ := classify(bus.InboundEvent{Kind: bus.KindVoice, Media: []byte("ogg"), MimeType: "audio/ogg"})
	if r != routeVoice {
		t.Fatalf("voice note should route to audio, got %v", r)
	}
}

func TestClassifyCaptionWinsOverImage(t *testing.T) {
	t.Parallel()

	evt := bus.InboundEvent{
		Kind:     bus.KindImage,
		Body:     "  look at this  ",
		Media:    []byte("jpegdata"),
		MimeType: "image/jpeg",
	}
	r, text := classify(evt)
	if r != routeText || text != "look at this" {
		t.Fatalf("captioned image should become a text event, got %v %q", r, text)
	}
}

func TestClassifyImageWithoutCaption(t *testing.T) {
	t.Parallel()

	evt := bus.InboundEvent{
		Kind:     bus.KindImage,
		Media:    []byte("jpegdata"),
		MimeType: "image/jpeg",
	}
	if r, _ := classify(evt); r != routeImage {
		t.Fatalf("image should route to image path, got %v", r)
	}
}

func TestClassifyUnsupportedDrops(t *testing.T) {
	t.Parallel()

	cases := []bus.InboundEvent{
		{Kind: bus.KindOther},
		{Kind: bus.KindOther, Media: []byte("webpdata"), MimeType: "application/pdf"},
		{Kind: bus.KindImage}, // image kind but no payload survived
	}
	for i, evt := range cases {
		if r, _ := classify(evt); r != routeDrop {
			t.Fatalf("case %d should drop, got %v", i, r)
		}
	}
}
