package domain

import "time"

// SessionStatus enumerates lifecycle states for a conversation channel.
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Session is a conversation channel between one user and one persona.
// At most one active session exists per (UserID, PersonaID); closed is terminal.
type Session struct {
	ID        int64         `db:"id"`
	UserID    int64         `db:"user_id"`
	PersonaID int64         `db:"persona_id"`
	Status    SessionStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// IsActive reports whether messages may still be appended.
func (s *Session) IsActive() bool {
	return s != nil && s.Status == SessionStatusActive
}
