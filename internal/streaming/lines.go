// Package streaming turns vendor byte streams into normalized StreamDelta sequences.
//
// Network reads arrive in arbitrary chunks that may split a record anywhere.
// A LineBuffer reassembles complete lines, a Framing turns each line into
// deltas, and a Parser ties the two together for exactly one stream.
package streaming

import "bytes"

// LineBuffer accumulates raw bytes and releases complete newline-terminated
// lines. The trailing fragment is held until more bytes arrive or Flush is called.
// The zero value is ready to use; a LineBuffer must not be shared between streams.
type LineBuffer struct {
	pending []byte
}

// Feed appends chunk and returns every line it completed, without the
// terminating newline. Returned slices are owned by the caller.
func (b *LineBuffer) Feed(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	b.pending = append(b.pending, chunk...)

	var lines [][]byte
	rest := b.pending
	for {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, bytes.Clone(rest[:idx]))
		rest = rest[idx+1:]
	}
	if len(lines) > 0 {
		b.pending = append(b.pending[:0], rest...)
	}
	return lines
}

// Flush returns the held fragment, if any, and empties the buffer.
func (b *LineBuffer) Flush() []byte {
	if len(b.pending) == 0 {
		return nil
	}
	rest := bytes.Clone(b.pending)
	b.pending = b.pending[:0]
	return rest
}

// Len reports how many bytes are held back.
func (b *LineBuffer) Len() int {
	return len(b.pending)
}

// Reset discards any held bytes.
func (b *LineBuffer) Reset() {
	b.pending = b.pending[:0]
}
