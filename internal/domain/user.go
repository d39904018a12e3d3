package domain

import "time"

// UserStatus represents lifecycle states for an end-user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an end-user who converses with personas and holds credits.
// CreditBalance is only mutated through the ledger.
type User struct {
	ID            int64      `db:"id"`
	Email         string     `db:"email"`
	DisplayName   string     `db:"display_name"`
	PasswordHash  string     `db:"password_hash"`
	CreditBalance int64      `db:"credit_balance"`
	Status        UserStatus `db:"status"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Active reports whether the user may authenticate.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}
