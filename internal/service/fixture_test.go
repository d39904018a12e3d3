package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/cache"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/repository"
	"github.com/spec-kit/persona-chat/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store       repository.Store
	clock       *testClock
	dispatcher  events.Dispatcher
	hints       *cache.Local
	ledger      *LedgerService
	sessions    *SessionService
	messages    *MessageService
	invitations *InvitationService
	footprints  *FootprintService
	personas    *PersonaService
	staff       *StaffService
	admin       *domain.StaffMember
	operator    *domain.StaffMember
	persona     *domain.Persona
	user        *domain.User
}

var emailSeq atomic.Int64

// runID keeps generated emails unique across runs against a shared database.
var runID = uuid.NewString()[:8]

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return newFixtureOn(t, memory.NewStore(memory.WithClock(clock.Now)), clock)
}

func newFixtureOn(t *testing.T, store repository.Store, clock *testClock) *fixture {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	deps := Dependencies{Store: store, Dispatcher: dispatcher, Now: clock.Now}
	hints := cache.NewLocal()

	f := &fixture{
		store:      store,
		clock:      clock,
		dispatcher: dispatcher,
		hints:      hints,
		ledger:     NewLedgerService(deps),
		sessions:   NewSessionService(deps),
		messages:   NewMessageService(deps, hints, 1),
		invitations: NewInvitationService(deps, InvitationConfig{
			DefaultTTL: 72 * time.Hour,
			BaseURL:    "http://localhost:3000/invite",
			BcryptCost: bcrypt.MinCost,
		}, auth.NewTokenManager("test-secret", time.Hour).WithClock(clock.Now)),
		footprints: NewFootprintService(deps),
		personas:   NewPersonaService(deps),
		staff:      NewStaffService(deps, bcrypt.MinCost),
	}
	f.admin = f.newStaff(t, domain.StaffRoleAdmin)
	f.operator = f.newStaff(t, domain.StaffRoleStaff)
	f.persona = f.newPersona(t, f.operator.ID)
	f.user = f.newUser(t)
	return f
}

func (f *fixture) newStaff(t *testing.T, role domain.StaffRole) *domain.StaffMember {
	t.Helper()
	staff := &domain.StaffMember{
		Email:       fmt.Sprintf("staff%d-%s@example.com", emailSeq.Add(1), runID),
		DisplayName: "staff",
		Role:        role,
		Status:      domain.StaffStatusActive,
	}
	require.NoError(t, f.store.Staff().Create(context.Background(), staff))
	return staff
}

func (f *fixture) newPersona(t *testing.T, staffID int64) *domain.Persona {
	t.Helper()
	persona, err := f.staff.CreatePersona(context.Background(), domain.SystemCaller(), staffID, "Mika", "")
	require.NoError(t, err)
	return persona
}

func (f *fixture) newUser(t *testing.T) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:       fmt.Sprintf("user%d-%s@example.com", emailSeq.Add(1), runID),
		DisplayName: "user",
		Status:      domain.UserStatusActive,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) fund(t *testing.T, userID, amount int64) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), f.adminCaller(), userID, amount)
	require.NoError(t, err)
}

func (f *fixture) adminCaller() domain.Caller {
	return domain.StaffCaller(f.admin.ID, domain.StaffRoleAdmin)
}

func (f *fixture) operatorCaller() domain.Caller {
	return domain.StaffCaller(f.operator.ID, domain.StaffRoleStaff)
}

func (f *fixture) openSession(t *testing.T, userID int64) *domain.Session {
	t.Helper()
	session, _, err := f.sessions.OpenOrResume(context.Background(), userID, f.persona.ID)
	require.NoError(t, err)
	return session
}

func (f *fixture) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func ptr[T any](v T) *T { return &v }
