package diagnostics

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 16

// ChannelSink fans reports out to in-process subscribers. A slow subscriber
// loses reports instead of stalling dispatch.
type ChannelSink struct {
	mu          sync.RWMutex
	subscribers map[chan Report]struct{}
	closed      bool
	drops       DropRecorder
}

// NewChannelSink creates an empty ChannelSink.
func NewChannelSink(drops DropRecorder) *ChannelSink {
	if drops == nil {
		drops = nopDrops{}
	}
	return &ChannelSink{
		subscribers: make(map[chan Report]struct{}),
		drops:       drops,
	}
}

// Subscribe returns a channel receiving subsequent reports.
// The channel is closed by Unsubscribe or Close.
func (s *ChannelSink) Subscribe(buffer int) chan Report {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Report, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *ChannelSink) Unsubscribe(ch chan Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// Subscribers returns the number of active subscriptions.
func (s *ChannelSink) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Report implements Sink.
func (s *ChannelSink) Report(_ context.Context, r Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- r:
		default:
			s.drops.RecordDiagnosticsDropped("channel")
		}
	}
}

// Close closes every subscriber channel. Later subscriptions are closed
// immediately.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
}
