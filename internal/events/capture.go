package events

import (
	"context"
	"sync"
)

// CaptureSink records every published event in memory. Useful for asserting
// emission behavior in tests.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

// NewCaptureSink constructs an empty capture sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

// Publish appends the event to the captured list.
func (s *CaptureSink) Publish(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
