package domain

import "time"

// Persona is a staff-operated identity users converse with. Sessions can only
// be opened against active personas.
type Persona struct {
	ID        int64     `db:"id"`
	StaffID   int64     `db:"staff_id"`
	Name      string    `db:"name"`
	Bio       string    `db:"bio"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
