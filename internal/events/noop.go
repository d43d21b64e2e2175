package events

import (
	"context"
	"sync"
)

// NoopPublisher discards events. Used when no broker is configured, and in
// tests, where Events captures everything published.
type NoopPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// PublishedEvent pairs a subject with its payload for test assertions.
type PublishedEvent struct {
	Subject string
	Event   OrderEvent
}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, subject string, event OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Subject: subject, Event: event})
	return nil
}

// Events returns a copy of everything published so far.
func (p *NoopPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
