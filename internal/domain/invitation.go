package domain

import "time"

// InvitationState is derived from the stored columns and the current time.
type InvitationState string

const (
	InvitationPending  InvitationState = "pending"
	InvitationConsumed InvitationState = "consumed"
	InvitationExpired  InvitationState = "expired"
)

// InvitationToken is a single-use credential authorizing account creation
// for Email. It is consumed at most once.
type InvitationToken struct {
	ID        int64      `db:"id"`
	Token     string     `db:"token"`
	Email     string     `db:"email"`
	CreatedBy int64      `db:"created_by"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	UsedBy    *int64     `db:"used_by"`
	CreatedAt time.Time  `db:"created_at"`
}

// State derives the lifecycle state at now. Consumption wins over expiry.
func (t *InvitationToken) State(now time.Time) InvitationState {
	switch {
	case t.UsedAt != nil:
		return InvitationConsumed
	case now.After(t.ExpiresAt):
		return InvitationExpired
	default:
		return InvitationPending
	}
}
