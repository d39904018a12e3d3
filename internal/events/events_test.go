package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/persona-chat/internal/domain"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestDispatcherRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventSessionOpened, func(context.Context, Event) error {
		calls++
		return errors.New("first fails")
	})
	d.Subscribe(EventSessionOpened, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSessionOpened})
	require.Error(t, err)
	require.Equal(t, 2, calls)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionClosed}))
}

func TestNATSForwarderPublishesJSON(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewInMemoryDispatcher()
	NewNATSForwarder(pub, "test").Attach(d)

	event := Event{
		ID:          "evt-1",
		Type:        EventMessageAppended,
		AggregateID: 7,
		Actor:       ActorFor(domain.UserCaller(3)),
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:     MessageAppendedPayload{MessageID: 11, SenderKind: domain.SenderKindUser, SenderID: 3, CreditCost: 1},
	}
	require.NoError(t, d.Publish(context.Background(), event))

	require.Equal(t, []string{"test.message_appended"}, pub.subjects)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	require.Equal(t, "evt-1", decoded["id"])
	require.Equal(t, float64(7), decoded["aggregate_id"])
}

func TestNATSForwarderSurfacesPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("disconnected")}
	err := NewNATSForwarder(pub, "").Forward(context.Background(), Event{ID: "x", Type: EventCreditsChanged})
	require.ErrorContains(t, err, "disconnected")
}
