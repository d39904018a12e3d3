package repository_test

import (
	"context"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/config"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/persistence"
	"github.com/spec-kit/persona-chat/internal/repository"
)

// postgresStore connects to TEST_POSTGRES_DSN and applies the migrations.
// Rows are never cleaned up; every test seeds its own uniquely named rows.
func postgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 32}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pg.PoolHandle(), zap.NewNop()))
	return repository.NewPostgresStore(pg.PoolHandle())
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString() + "@example.com"
}

type seeded struct {
	user    *domain.User
	staff   *domain.StaffMember
	persona *domain.Persona
}

func seed(t *testing.T, store repository.Store, balance int64) seeded {
	t.Helper()
	ctx := context.Background()
	user := &domain.User{Email: uniqueEmail("user"), DisplayName: "u", CreditBalance: balance, Status: domain.UserStatusActive}
	require.NoError(t, store.Users().Create(ctx, user))
	staff := &domain.StaffMember{Email: uniqueEmail("staff"), DisplayName: "s", Role: domain.StaffRoleStaff, Status: domain.StaffStatusActive}
	require.NoError(t, store.Staff().Create(ctx, staff))
	persona := &domain.Persona{StaffID: staff.ID, Name: "Mika", IsActive: true}
	require.NoError(t, store.Personas().Create(ctx, persona))
	return seeded{user: user, staff: staff, persona: persona}
}

func TestPostgresConcurrentCreateActiveYieldsOneSession(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 0)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := &domain.Session{UserID: s.user.ID, PersonaID: s.persona.ID, CreatedAt: time.Now()}
			errs[i] = store.Sessions().CreateActive(ctx, session)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, repository.ErrConflict)
	}
	require.Equal(t, 1, created)

	active, err := store.Sessions().GetActiveByPair(ctx, s.user.ID, s.persona.ID)
	require.NoError(t, err)
	_, err = store.Sessions().Close(ctx, active.ID, time.Now())
	require.NoError(t, err)

	reopened := &domain.Session{UserID: s.user.ID, PersonaID: s.persona.ID, CreatedAt: time.Now()}
	require.NoError(t, store.Sessions().CreateActive(ctx, reopened))
	require.NotEqual(t, active.ID, reopened.ID)
}

func TestPostgresConcurrentDebitNeverOverdraws(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 10)

	const workers = 25
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithTx(ctx, func(tx repository.Store) error {
				_, err := tx.Ledger().Debit(ctx, s.user.ID, 1)
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, repository.ErrInsufficientBalance)
	}
	require.Equal(t, 10, succeeded)

	balance, err := store.Ledger().Balance(ctx, s.user.ID)
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = store.Ledger().Debit(ctx, math.MaxInt32, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresCreditRefusesOverflow(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 1)

	_, err := store.Ledger().Credit(ctx, s.user.ID, math.MaxInt64)
	require.ErrorIs(t, err, repository.ErrBalanceOverflow)

	balance, err := store.Ledger().Credit(ctx, s.user.ID, math.MaxInt64-1)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), balance)
}

func TestPostgresConcurrentRedeemConsumesOnce(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 0)
	now := time.Now().UTC().Truncate(time.Microsecond)

	token := &domain.InvitationToken{
		Token:     uuid.NewString(),
		Email:     s.user.Email,
		CreatedBy: s.staff.ID,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, store.Invitations().Create(ctx, token))

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Invitations().Redeem(ctx, token.Token, s.user.ID, now)
		}(i)
	}
	wg.Wait()

	redeemed := 0
	for _, err := range errs {
		if err == nil {
			redeemed++
			continue
		}
		require.ErrorIs(t, err, repository.ErrNotFound)
	}
	require.Equal(t, 1, redeemed)

	stored, err := store.Invitations().GetByToken(ctx, token.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.UsedAt)
	require.Equal(t, s.user.ID, *stored.UsedBy)

	expired := &domain.InvitationToken{
		Token:     uuid.NewString(),
		Email:     s.user.Email,
		CreatedBy: s.staff.ID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, store.Invitations().Create(ctx, expired))
	_, err = store.Invitations().Redeem(ctx, expired.Token, s.user.ID, now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresFootprintUpsertMovesForward(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 0)
	first := time.Now().UTC().Truncate(time.Microsecond)
	later := first.Add(time.Minute)

	const visitors = 12
	var wg sync.WaitGroup
	errs := make([]error, visitors)
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Footprints().Upsert(ctx, s.user.ID, s.persona.ID, first)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	fp, err := store.Footprints().Upsert(ctx, s.user.ID, s.persona.ID, later)
	require.NoError(t, err)
	require.True(t, fp.CreatedAt.Equal(later))

	stale, err := store.Footprints().Upsert(ctx, s.user.ID, s.persona.ID, first)
	require.NoError(t, err)
	require.Equal(t, fp.ID, stale.ID)
	require.True(t, stale.CreatedAt.Equal(later))

	list, err := store.Footprints().ListByPersona(ctx, s.persona.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = store.Footprints().Upsert(ctx, s.user.ID, math.MaxInt32, first)
	require.ErrorIs(t, err, repository.ErrReferenceMissing)
}

func TestPostgresPersonaUpdateAndList(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 0)

	second := &domain.Persona{StaffID: s.staff.ID, Name: "Rin", IsActive: true}
	require.NoError(t, store.Personas().Create(ctx, second))
	second.IsActive = false
	second.Bio = "resting"
	require.NoError(t, store.Personas().Update(ctx, second))

	stored, err := store.Personas().GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	require.Equal(t, "resting", stored.Bio)

	mine, err := store.Personas().List(ctx, repository.PersonaFilter{StaffID: &s.staff.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	active, err := store.Personas().List(ctx, repository.PersonaFilter{StaffID: &s.staff.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, s.persona.ID, active[0].ID)

	require.ErrorIs(t, store.Personas().Update(ctx, &domain.Persona{ID: math.MaxInt32, Name: "x"}), repository.ErrNotFound)
}

func TestPostgresWithTxRollsBack(t *testing.T) {
	store := postgresStore(t)
	ctx := context.Background()
	s := seed(t, store, 5)

	err := store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Ledger().Debit(ctx, s.user.ID, 5); err != nil {
			return err
		}
		return repository.ErrConflict
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	balance, err := store.Ledger().Balance(ctx, s.user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), balance)
}
