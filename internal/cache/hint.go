// Package cache holds the per-session high-water-mark hint consulted by
// message polling. The hint may run ahead of the datastore but never behind
// it, so a poll may skip the datastore only when the hint is at or below the
// caller's cursor.
package cache

import (
	"context"
	"sync"
)

// HighWaterMarks tracks the largest message id appended to each session.
type HighWaterMarks interface {
	// Advance raises the session's mark to id; lower values are ignored.
	Advance(ctx context.Context, sessionID, id int64) error
	// Latest returns the session's mark. ok is false when nothing is known.
	Latest(ctx context.Context, sessionID int64) (id int64, ok bool, err error)
}

// Noop never knows anything, sending every poll to the datastore.
type Noop struct{}

func (Noop) Advance(context.Context, int64, int64) error { return nil }

func (Noop) Latest(context.Context, int64) (int64, bool, error) { return 0, false, nil }

// Local keeps marks in process memory. Only valid when a single process
// owns all appends, as with the in-memory store.
type Local struct {
	mu    sync.RWMutex
	marks map[int64]int64
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{marks: map[int64]int64{}}
}

func (l *Local) Advance(_ context.Context, sessionID, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id > l.marks[sessionID] {
		l.marks[sessionID] = id
	}
	return nil
}

func (l *Local) Latest(_ context.Context, sessionID int64) (int64, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.marks[sessionID]
	return id, ok, nil
}
