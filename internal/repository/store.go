package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/persona-chat/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed row does not exist, or a
	// conditional write matched no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("unique constraint violated")
	// ErrInsufficientBalance is returned when a debit would overdraw a balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrBalanceOverflow is returned when a credit would push a balance past
	// the largest representable value.
	ErrBalanceOverflow = errors.New("balance overflow")
	// ErrReferenceMissing is returned when a write references a row that
	// does not exist.
	ErrReferenceMissing = errors.New("referenced record missing")
)

// Store groups the repositories of the core behind one transactional boundary.
type Store interface {
	Users() UserRepository
	Staff() StaffRepository
	Personas() PersonaRepository
	Ledger() LedgerRepository
	Sessions() SessionRepository
	Messages() MessageRepository
	Invitations() InvitationRepository
	Footprints() FootprintRepository

	// WithTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise,
	// including on panic. Nested calls reuse the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// UserRepository defines persistence access for end-users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// StaffRepository defines persistence access for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id int64) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
}

// PersonaFilter narrows persona listings.
type PersonaFilter struct {
	StaffID    *int64
	ActiveOnly bool
	Limit      int
	Offset     int
}

// PersonaRepository manages personas.
type PersonaRepository interface {
	Create(ctx context.Context, persona *domain.Persona) error
	GetByID(ctx context.Context, id int64) (*domain.Persona, error)
	// Update writes name, bio and is_active back. ErrNotFound when the
	// persona does not exist.
	Update(ctx context.Context, persona *domain.Persona) error
	List(ctx context.Context, filter PersonaFilter) ([]domain.Persona, error)
}

// LedgerRepository is the only write path for user credit balances.
type LedgerRepository interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	// Debit decrements the balance only if it covers amount and returns the
	// new balance. ErrInsufficientBalance leaves the balance untouched.
	Debit(ctx context.Context, userID, amount int64) (int64, error)
	// Credit increments the balance. ErrBalanceOverflow leaves it untouched.
	Credit(ctx context.Context, userID, amount int64) (int64, error)
	AddEntry(ctx context.Context, entry *domain.LedgerEntry) error
	ListEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, error)
}

// SessionFilter narrows session listings. Nil fields are ignored.
type SessionFilter struct {
	UserID       *int64
	OwnerStaffID *int64
	Status       *domain.SessionStatus
	Limit        int
	Offset       int
}

// SessionRepository manages conversation sessions.
type SessionRepository interface {
	// CreateActive inserts an active session, returning ErrConflict when the
	// pair already has one.
	CreateActive(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	// LockByID reads the session and holds a row lock until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id int64) (*domain.Session, error)
	GetActiveByPair(ctx context.Context, userID, personaID int64) (*domain.Session, error)
	// Close moves an active session to closed. ErrNotFound when no active
	// session with that id exists.
	Close(ctx context.Context, id int64, at time.Time) (*domain.Session, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error)
}

// MessageRepository manages the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListAfter returns the session's messages with id > afterID in id order.
	ListAfter(ctx context.Context, sessionID, afterID int64) ([]domain.Message, error)
	GetByIdempotencyKey(ctx context.Context, sessionID int64, kind domain.SenderKind, key string) (*domain.Message, error)
}

// InvitationRepository manages invitation tokens.
type InvitationRepository interface {
	Create(ctx context.Context, token *domain.InvitationToken) error
	GetByToken(ctx context.Context, token string) (*domain.InvitationToken, error)
	// LockByToken reads the token and holds a row lock until the surrounding
	// transaction ends.
	LockByToken(ctx context.Context, token string) (*domain.InvitationToken, error)
	// Redeem consumes a pending, unexpired token. ErrNotFound when no such
	// token could be consumed at now.
	Redeem(ctx context.Context, token string, userID int64, now time.Time) (*domain.InvitationToken, error)
	List(ctx context.Context, limit, offset int) ([]domain.InvitationToken, error)
}

// FootprintRepository manages persona visit markers.
type FootprintRepository interface {
	// Upsert inserts the pair or moves its timestamp forward to at.
	Upsert(ctx context.Context, userID, personaID int64, at time.Time) (*domain.Footprint, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Footprint, error)
	ListByPersona(ctx context.Context, personaID int64, limit, offset int) ([]domain.Footprint, error)
}

// NormalizePage clamps pagination inputs.
func NormalizePage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
