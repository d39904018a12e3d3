package events

import (
	"time"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionOpened      EventType = "session_opened"
	EventSessionClosed      EventType = "session_closed"
	EventMessageAppended    EventType = "message_appended"
	EventCreditsChanged     EventType = "credits_changed"
	EventInvitationIssued   EventType = "invitation_issued"
	EventInvitationRedeemed EventType = "invitation_redeemed"
	EventFootprintRecorded  EventType = "footprint_recorded"
)

// AllEventTypes lists every type a service may publish.
var AllEventTypes = []EventType{
	EventSessionOpened,
	EventSessionClosed,
	EventMessageAppended,
	EventCreditsChanged,
	EventInvitationIssued,
	EventInvitationRedeemed,
	EventFootprintRecorded,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *int64             `json:"user_id,omitempty"`
	StaffID *int64             `json:"staff_id,omitempty"`
}

// ActorFor converts a caller into event actor metadata.
func ActorFor(caller domain.Caller) Actor {
	id := caller.ID
	if caller.IsStaff() {
		return Actor{Type: domain.SubjectTypeStaff, StaffID: &id}
	}
	return Actor{Type: domain.SubjectTypeUser, UserID: &id}
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	AggregateID int64     `json:"aggregate_id"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// SessionOpenedPayload payload.
type SessionOpenedPayload struct {
	UserID    int64 `json:"user_id"`
	PersonaID int64 `json:"persona_id"`
}

// SessionClosedPayload payload.
type SessionClosedPayload struct {
	UserID    int64 `json:"user_id"`
	PersonaID int64 `json:"persona_id"`
}

// MessageAppendedPayload payload.
type MessageAppendedPayload struct {
	MessageID   int64             `json:"message_id"`
	SenderKind  domain.SenderKind `json:"sender_kind"`
	SenderID    int64             `json:"sender_id"`
	CreditCost  int64             `json:"credit_cost"`
	BodyPreview string            `json:"body_preview"`
}

// CreditsChangedPayload payload.
type CreditsChangedPayload struct {
	Delta   int64               `json:"delta"`
	Balance int64               `json:"balance"`
	Reason  domain.LedgerReason `json:"reason"`
}

// InvitationIssuedPayload payload. The token itself is never published.
type InvitationIssuedPayload struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationRedeemedPayload payload.
type InvitationRedeemedPayload struct {
	Email  string `json:"email"`
	UserID int64  `json:"user_id"`
}

// FootprintRecordedPayload payload.
type FootprintRecordedPayload struct {
	UserID    int64 `json:"user_id"`
	PersonaID int64 `json:"persona_id"`
}
