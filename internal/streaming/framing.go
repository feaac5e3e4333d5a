package streaming

import (
	"bytes"
	"log/slog"

	"github.com/tidwall/gjson"

	"aihub/internal/core"
)

// Framing interprets one complete line of a vendor stream.
type Framing interface {
	// ParseLine returns the deltas carried by line and whether the line ends
	// the stream. Blank and malformed lines yield nothing.
	ParseLine(line []byte) (deltas []core.StreamDelta, done bool)
}

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

// terminal is the final element of every stream.
var terminal = core.StreamDelta{Delta: "", Done: true}

// EventStream is the line-prefixed server-sent event framing used by
// OpenAI-compatible APIs: "data: <json>" lines terminated by "data: [DONE]".
type EventStream struct {
	// ContentPath is the gjson path of the text fragment inside each payload.
	ContentPath string
}

// OpenAIEventStream reads choices[0].delta.content from each event.
func OpenAIEventStream() EventStream {
	return EventStream{ContentPath: "choices.0.delta.content"}
}

// ParseLine implements Framing
func (f EventStream) ParseLine(line []byte) ([]core.StreamDelta, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || !bytes.HasPrefix(trimmed, dataPrefix) {
		return nil, false
	}

	payload := bytes.TrimSpace(trimmed[len(dataPrefix):])
	if bytes.Equal(payload, doneSentinel) {
		return []core.StreamDelta{terminal}, true
	}

	if !gjson.ValidBytes(payload) {
		slog.Debug("skipping malformed event payload", "bytes", len(payload))
		return nil, false
	}

	content := gjson.GetBytes(payload, f.ContentPath).String()
	if content == "" {
		return nil, false
	}
	return []core.StreamDelta{{Delta: content}}, false
}

// NDJSON is newline-delimited JSON framing where each record carries a
// content field and an explicit completion flag, as Ollama's native API does.
type NDJSON struct {
	ContentPath string
	DonePath    string
}

// OllamaNDJSON reads message.content and done from each record.
func OllamaNDJSON() NDJSON {
	return NDJSON{ContentPath: "message.content", DonePath: "done"}
}

// ParseLine implements Framing. A completion record that still carries text
// yields that text first, then the terminal delta.
func (f NDJSON) ParseLine(line []byte) ([]core.StreamDelta, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, false
	}
	if !gjson.ValidBytes(trimmed) {
		slog.Debug("skipping malformed json record", "bytes", len(trimmed))
		return nil, false
	}

	results := gjson.GetManyBytes(trimmed, f.ContentPath, f.DonePath)
	content, done := results[0].String(), results[1].Bool()

	switch {
	case done && content != "":
		return []core.StreamDelta{{Delta: content}, terminal}, true
	case done:
		return []core.StreamDelta{terminal}, true
	case content != "":
		return []core.StreamDelta{{Delta: content}}, false
	default:
		return nil, false
	}
}
