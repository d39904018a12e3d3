package domain

import "time"

// Footprint marks the last time a user visited a persona. One row per pair.
type Footprint struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	PersonaID int64     `db:"persona_id"`
	CreatedAt time.Time `db:"created_at"`
}
