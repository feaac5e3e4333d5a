package core

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a ChatStream is iterated a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// ChatStream is a finite, single-use sequence of StreamDelta values.
//
// Callers must either range over Iter (breaking early is fine) or call
// Collect. The underlying response body is only released when iteration
// finishes or is abandoned.
type ChatStream struct {
	iterator iter.Seq2[StreamDelta, error]
	consumed atomic.Bool
}

// NewChatStream wraps an iterator. The iterator yields a non-nil error to
// report a mid-stream transport failure.
func NewChatStream(iterator iter.Seq2[StreamDelta, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// Iter returns the delta sequence. A second call yields ErrStreamConsumed.
//
//	for delta, err := range stream.Iter() {
//	    if err != nil { ... }
//	    fmt.Print(delta.Delta)
//	}
func (s *ChatStream) Iter() iter.Seq2[StreamDelta, error] {
	return func(yield func(StreamDelta, error) bool) {
		if s.consumed.Swap(true) {
			yield(StreamDelta{}, ErrStreamConsumed)
			return
		}
		s.iterator(yield)
	}
}

// Collect drains the stream and returns the deltas in emission order and the
// concatenated text. On a mid-stream error the partial result is returned with it.
func (s *ChatStream) Collect() ([]StreamDelta, string, error) {
	var (
		deltas []StreamDelta
		text   strings.Builder
	)
	for delta, err := range s.Iter() {
		if err != nil {
			return deltas, text.String(), err
		}
		deltas = append(deltas, delta)
		text.WriteString(delta.Delta)
	}
	return deltas, text.String(), nil
}
