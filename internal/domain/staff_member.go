package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleStaff StaffRole = "staff"
	StaffRoleAdmin StaffRole = "admin"
)

// StaffStatus represents lifecycle states for a staff account.
type StaffStatus string

const (
	StaffStatusActive    StaffStatus = "active"
	StaffStatusSuspended StaffStatus = "suspended"
)

// StaffMember models an operator who runs personas, or an administrator.
type StaffMember struct {
	ID           int64       `db:"id"`
	Email        string      `db:"email"`
	DisplayName  string      `db:"display_name"`
	PasswordHash string      `db:"password_hash"`
	Role         StaffRole   `db:"role"`
	Status       StaffStatus `db:"status"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

// Active reports whether the staff member may authenticate.
func (s *StaffMember) Active() bool {
	return s != nil && s.Status == StaffStatusActive
}
