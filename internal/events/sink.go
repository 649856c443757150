package events

import (
	"errors"
	"sync"
)

var (
	ErrSinkFull   = errors.New("subscriber buffer is full")
	ErrSinkClosed = errors.New("subscriber is closed")
)

// ChannelSink buffers frames for a single stream writer. Frames sent while the buffer is full
// are dropped.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan []byte, buffer)}
}

func (s *ChannelSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.ch <- frame:
		return nil
	default:
		return ErrSinkFull
	}
}

// C is closed once the sink is closed and drained.
func (s *ChannelSink) C() <-chan []byte {
	return s.ch
}

func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
