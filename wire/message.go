package wire

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Script-bridge tokens.
const (
	processMarker    = "coreML"
	segmentSeparator = "/-/"
	replacedMessage  = "replaced"
	handlerFunction  = "safegazeOnDeviceModelHandler"
)

// Kind classifies a page message.
type Kind int

const (
	// KindLog is free-form text to log.
	KindLog Kind = iota
	// KindProcess asks for an image to be processed.
	KindProcess
	// KindReplaced reports that the page swapped in a redacted image.
	KindReplaced
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindReplaced:
		return "replaced"
	default:
		return "log"
	}
}

// Message is a parsed page message.
type Message struct {
	Kind Kind
	// URL and UID are set for KindProcess.
	URL string
	UID string
	// Text is the raw message.
	Text string
}

// ParseMessage classifies a message posted by the page script.
//
// "coreML/-/<url>/-/<uid>" with exactly three segments and an absolute URL is
// a process request; "replaced" is a replacement notice; anything else is a
// log line.
//
// @example
//
//	msg := wire.ParseMessage("coreML/-/https://example.com/a.jpg/-/42")
//	// msg.Kind == wire.KindProcess, msg.URL == "https://example.com/a.jpg", msg.UID == "42"
func ParseMessage(s string) Message {
	msg := Message{Kind: KindLog, Text: s}
	switch {
	case s == replacedMessage:
		msg.Kind = KindReplaced
	case strings.Contains(s, processMarker):
		parts := strings.Split(s, segmentSeparator)
		if len(parts) != 3 {
			return msg
		}
		u, err := url.Parse(parts[1])
		if err != nil || !u.IsAbs() || u.Host == "" {
			return msg
		}
		msg.Kind = KindProcess
		msg.URL = parts[1]
		msg.UID = parts[2]
	}
	return msg
}

// HandlerCall renders the page callback that delivers a payload for uid, as
// safegazeOnDeviceModelHandler(uid, detectionResultStr). Both arguments are
// emitted as JavaScript string literals.
func HandlerCall(uid string, payload []byte) string {
	u, _ := json.Marshal(uid)
	p, _ := json.Marshal(string(payload))
	return fmt.Sprintf("%s(%s,%s);", handlerFunction, u, p)
}
