package pipeline

import (
	"strings"

	"zaprelay/pkg/bus"
)

type route int

const (
	routeDrop route = iota
	routeText
	routeVoice
	routeImage
)

// classify routes one inbound event. Pure dispatch, first match wins:
//
//  1. chat           -> text, body trimmed
//  2. voice          -> audio
//  3. media+caption  -> text carrying the caption (instead of the image)
//  4. media+image    -> image
//  5. anything else  -> drop
//
// A body that is empty after trimming yields no event at all.
func classify(evt bus.InboundEvent) (route, string) {
	switch evt.Kind {
	case bus.KindChat:
		text := strings.TrimSpace(evt.Body)
		if text == "" {
			return routeDrop, ""
		}
		return routeText, text
	case bus.KindVoice:
		return routeVoice, ""
	}

	if len(evt.Media) > 0 {
		if caption := strings.TrimSpace(evt.Body); caption != "" {
			return routeText, caption
		}
		if strings.HasPrefix(evt.MimeType, "image/") {
			return routeImage, ""
		}
	}

	return routeDrop, ""
}
