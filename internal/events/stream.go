package events

import (
	"context"
	"sync"
)

const defaultStreamBuffer = 256

// Stream is the per-run channel the projector writes and the transport reads.
// Single producer, single consumer.
type Stream struct {
	ch        chan Event
	closeOnce sync.Once
}

func NewStream() *Stream {
	return &Stream{ch: make(chan Event, defaultStreamBuffer)}
}

// Emit delivers an event, blocking if the buffer is full. Returns the context
// error when the run is cancelled while blocked.
func (s *Stream) Emit(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events is the consumer side; it is closed when the run finishes.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Close ends the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
}
