package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSForwarder republishes dispatched events as JSON on
// "<prefix>.<event type>" subjects.
type NATSForwarder struct {
	publisher Publisher
	prefix    string
}

// NewNATSForwarder builds a forwarder.
func NewNATSForwarder(publisher Publisher, prefix string) *NATSForwarder {
	if prefix == "" {
		prefix = "chat.events"
	}
	return &NATSForwarder{publisher: publisher, prefix: prefix}
}

// Connect dials NATS with a client name.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
}

// Subject returns the subject used for an event type.
func (f *NATSForwarder) Subject(eventType EventType) string {
	return f.prefix + "." + string(eventType)
}

// Attach subscribes the forwarder to every event type.
func (f *NATSForwarder) Attach(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, f.Forward)
	}
}

// Forward publishes one event.
func (f *NATSForwarder) Forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := f.publisher.Publish(f.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}
