package domain

import "time"

// SenderKind indicates which side of a session authored a message.
type SenderKind string

const (
	SenderKindUser    SenderKind = "user"
	SenderKindPersona SenderKind = "persona"
)

// Message is an immutable entry in a session's log. IDs are drawn from a
// single system-wide sequence; within a session they follow commit order.
// SenderID is the user id for user messages and the persona id for persona
// messages.
type Message struct {
	ID             int64      `db:"id"`
	SessionID      int64      `db:"session_id"`
	SenderKind     SenderKind `db:"sender_kind"`
	SenderID       int64      `db:"sender_id"`
	Title          *string    `db:"title"`
	Content        string     `db:"content"`
	ImageURL       *string    `db:"image_url"`
	CreditCost     int64      `db:"credit_cost"`
	IdempotencyKey *string    `db:"idempotency_key"`
	CreatedAt      time.Time  `db:"created_at"`
}
