// Package sink provides the per-connection outbound event queue consumed by
// the transport's write loop.
package sink

import (
	"context"
	"sync"

	"github.com/mrarman0786/chat-app/domain/event"
	"github.com/mrarman0786/chat-app/errors"
)

// Channel is a bounded, non-blocking EventSink backed by a buffered channel.
// The write pump drains Events(); delivery attempts against a full or closed
// sink fail with ErrSlowConsumer so the registry can drop the connection.
type Channel struct {
	mu     sync.RWMutex
	closed bool
	events chan event.Event
}

func NewChannel(bufferSize int) *Channel {
	return &Channel{events: make(chan event.Event, bufferSize)}
}

// Events returns the queue drained by the connection's write loop. The
// channel is closed exactly once, by Close.
func (s *Channel) Events() <-chan event.Event {
	return s.events
}

// Consume enqueues an event without blocking. A full buffer means the
// receiver cannot keep up; the caller treats that connection as broken.
func (s *Channel) Consume(ctx context.Context, e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.ErrSlowConsumer
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}

// Close is idempotent. The write-side lock guarantees no Consume is sending
// on the channel when it closes.
func (s *Channel) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
