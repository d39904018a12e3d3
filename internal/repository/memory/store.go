// Package memory provides an in-process repository.Store. Transactions are
// serialized behind one mutex and a failed transaction restores the state
// captured when it began.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
)

type pairKey struct {
	userID    int64
	personaID int64
}

type state struct {
	users       map[int64]domain.User
	staff       map[int64]domain.StaffMember
	personas    map[int64]domain.Persona
	sessions    map[int64]domain.Session
	messages    []domain.Message
	ledger      []domain.LedgerEntry
	invitations map[string]domain.InvitationToken
	footprints  map[pairKey]domain.Footprint
	seq         map[string]int64
}

func newState() *state {
	return &state{
		users:       map[int64]domain.User{},
		staff:       map[int64]domain.StaffMember{},
		personas:    map[int64]domain.Persona{},
		sessions:    map[int64]domain.Session{},
		invitations: map[string]domain.InvitationToken{},
		footprints:  map[pairKey]domain.Footprint{},
		seq:         map[string]int64{},
	}
}

// clone copies every table. Stored values are replaced wholesale on update,
// never mutated in place, so copying the values is enough.
func (s *state) clone() *state {
	return &state{
		users:       cloneMap(s.users),
		staff:       cloneMap(s.staff),
		personas:    cloneMap(s.personas),
		sessions:    cloneMap(s.sessions),
		messages:    slices.Clone(s.messages),
		ledger:      slices.Clone(s.ledger),
		invitations: cloneMap(s.invitations),
		footprints:  cloneMap(s.footprints),
		seq:         cloneMap(s.seq),
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for columns the database would default.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{mu: &sync.Mutex{}, data: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository             { return &userRepository{s: s} }
func (s *Store) Staff() repository.StaffRepository            { return &staffRepository{s: s} }
func (s *Store) Personas() repository.PersonaRepository       { return &personaRepository{s: s} }
func (s *Store) Ledger() repository.LedgerRepository          { return &ledgerRepository{s: s} }
func (s *Store) Sessions() repository.SessionRepository       { return &sessionRepository{s: s} }
func (s *Store) Messages() repository.MessageRepository       { return &messageRepository{s: s} }
func (s *Store) Invitations() repository.InvitationRepository { return &invitationRepository{s: s} }
func (s *Store) Footprints() repository.FootprintRepository   { return &footprintRepository{s: s} }

// WithTx holds the store lock for the whole of fn. Any error or panic from fn
// restores the pre-transaction state.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			*s.data = *snapshot
		}
	}()

	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// guard locks the store for a single statement outside a transaction.
func (s *Store) guard() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func page[T any](items []T, limit, offset, def, max int) []T {
	limit, offset = repository.NormalizePage(limit, offset, def, max)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
