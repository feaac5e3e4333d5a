package streaming

import (
	"context"
	"errors"
	"io"

	"aihub/internal/core"
)

// Parser is the incremental decoder for a single stream. It owns its line
// buffer, so every stream needs its own Parser.
type Parser struct {
	framing Framing
	lines   LineBuffer
	done    bool
}

// NewParser creates a parser for the given framing.
func NewParser(framing Framing) *Parser {
	return &Parser{framing: framing}
}

// Feed consumes one network chunk and returns the deltas it completed.
// Once the stream has ended, further input is ignored.
func (p *Parser) Feed(chunk []byte) []core.StreamDelta {
	if p.done {
		return nil
	}
	var out []core.StreamDelta
	for _, line := range p.lines.Feed(chunk) {
		out = p.parse(out, line)
		if p.done {
			p.lines.Reset()
			break
		}
	}
	return out
}

// Finish is called when the transport closes. The held fragment is parsed as
// a last line, and a terminal delta is synthesized if the backend never sent one.
func (p *Parser) Finish() []core.StreamDelta {
	if p.done {
		return nil
	}
	var out []core.StreamDelta
	if rest := p.lines.Flush(); len(rest) > 0 {
		out = p.parse(out, rest)
	}
	if !p.done {
		p.done = true
		out = append(out, terminal)
	}
	return out
}

// Done reports whether the terminal delta has been produced.
func (p *Parser) Done() bool {
	return p.done
}

func (p *Parser) parse(out []core.StreamDelta, line []byte) []core.StreamDelta {
	deltas, done := p.framing.ParseLine(line)
	out = append(out, deltas...)
	if done {
		p.done = true
	}
	return out
}

// DefaultReadSize is the buffer size used for each body read.
const DefaultReadSize = 4096

// Normalizer wires a response body through a Framing.
type Normalizer struct {
	Framing Framing
	// Provider names the backend in transport errors.
	Provider string
	// ReadSize overrides DefaultReadSize when positive.
	ReadSize int
}

// Stream returns a single-use stream of deltas read from body. The body is
// closed when iteration completes or the consumer stops early. Read failures
// other than EOF are yielded as transport errors.
func (n Normalizer) Stream(ctx context.Context, body io.ReadCloser) *core.ChatStream {
	readSize := n.ReadSize
	if readSize <= 0 {
		readSize = DefaultReadSize
	}

	return core.NewChatStream(func(yield func(core.StreamDelta, error) bool) {
		defer func() {
			_ = body.Close()
		}()

		parser := NewParser(n.Framing)
		buf := make([]byte, readSize)

		emit := func(deltas []core.StreamDelta) bool {
			for _, d := range deltas {
				if !yield(d, nil) {
					return false
				}
			}
			return true
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(core.StreamDelta{}, core.NewTransportError(n.Provider, err))
				return
			}

			read, err := body.Read(buf)
			if read > 0 {
				if !emit(parser.Feed(buf[:read])) || parser.Done() {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				emit(parser.Finish())
				return
			}
			if err != nil {
				yield(core.StreamDelta{}, core.NewTransportError(n.Provider, err))
				return
			}
		}
	})
}
