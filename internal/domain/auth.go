package domain

import "time"

// SubjectType differentiates users vs staff tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "user"
	SubjectTypeStaff SubjectType = "staff"
)

// Token represents issued authentication tokens (JWT or opaque) metadata.
type Token struct {
	ID        string
	SubjectID int64
	Subject   SubjectType
	Role      *StaffRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Caller is the authenticated identity acting on the core. It is either a
// user or a staff member; authorization switches on Kind.
type Caller struct {
	Kind SubjectType
	ID   int64
	Role StaffRole
}

// UserCaller builds a caller for an end-user.
func UserCaller(id int64) Caller {
	return Caller{Kind: SubjectTypeUser, ID: id}
}

// StaffCaller builds a caller for a staff member with the given role.
func StaffCaller(id int64, role StaffRole) Caller {
	return Caller{Kind: SubjectTypeStaff, ID: id, Role: role}
}

// IsUser reports whether the caller is an end-user.
func (c Caller) IsUser() bool { return c.Kind == SubjectTypeUser }

// IsStaff reports whether the caller is staff of any role.
func (c Caller) IsStaff() bool { return c.Kind == SubjectTypeStaff }

// IsAdmin reports whether the caller is staff with the admin role.
func (c Caller) IsAdmin() bool { return c.IsStaff() && c.Role == StaffRoleAdmin }

// SystemCaller is the identity of operator tooling running with direct
// datastore access. It carries the admin role and no account id.
func SystemCaller() Caller {
	return Caller{Kind: SubjectTypeStaff, Role: StaffRoleAdmin}
}
