package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
)

func seedUser(t *testing.T, s *Store, balance int64) *domain.User {
	t.Helper()
	user := &domain.User{Email: "u@example.com", DisplayName: "u", CreditBalance: balance, Status: domain.UserStatusActive}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 5)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Ledger().Debit(ctx, user.ID, 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	balance, err := s.Ledger().Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), balance)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 5)

	require.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx repository.Store) error {
			_, _ = tx.Ledger().Credit(ctx, user.ID, 10)
			panic("unexpected")
		})
	})

	balance, err := s.Ledger().Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), balance)
}

func TestNestedWithTxReusesOuter(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 5)

	err := s.WithTx(ctx, func(tx repository.Store) error {
		return tx.WithTx(ctx, func(inner repository.Store) error {
			_, err := inner.Ledger().Credit(ctx, user.ID, 1)
			return err
		})
	})
	require.NoError(t, err)

	balance, err := s.Ledger().Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), balance)
}

func TestDebitIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 2)

	_, err := s.Ledger().Debit(ctx, user.ID, 3)
	require.ErrorIs(t, err, repository.ErrInsufficientBalance)

	balance, err := s.Ledger().Debit(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Zero(t, balance)

	_, err = s.Ledger().Debit(ctx, 999, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreditRefusesToWrap(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 1)

	_, err := s.Ledger().Credit(ctx, user.ID, math.MaxInt64)
	require.ErrorIs(t, err, repository.ErrBalanceOverflow)

	balance, err := s.Ledger().Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), balance)

	balance, err = s.Ledger().Credit(ctx, user.ID, math.MaxInt64-1)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), balance)
}

func TestCreateActiveRejectsSecondActiveSession(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 0)
	staff := &domain.StaffMember{Email: "s@example.com", Role: domain.StaffRoleStaff, Status: domain.StaffStatusActive}
	require.NoError(t, s.Staff().Create(ctx, staff))
	persona := &domain.Persona{StaffID: staff.ID, Name: "p", IsActive: true}
	require.NoError(t, s.Personas().Create(ctx, persona))

	now := time.Now()
	first := &domain.Session{UserID: user.ID, PersonaID: persona.ID, CreatedAt: now}
	require.NoError(t, s.Sessions().CreateActive(ctx, first))

	second := &domain.Session{UserID: user.ID, PersonaID: persona.ID, CreatedAt: now}
	require.ErrorIs(t, s.Sessions().CreateActive(ctx, second), repository.ErrConflict)

	_, err := s.Sessions().Close(ctx, first.ID, now)
	require.NoError(t, err)
	_, err = s.Sessions().Close(ctx, first.ID, now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.Sessions().CreateActive(ctx, second))
	require.NotEqual(t, first.ID, second.ID)
}

func TestRedeemIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 0)
	staff := &domain.StaffMember{Email: "a@example.com", Role: domain.StaffRoleAdmin, Status: domain.StaffStatusActive}
	require.NoError(t, s.Staff().Create(ctx, staff))

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	token := &domain.InvitationToken{Token: "tok", Email: "n@example.com", CreatedBy: staff.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, s.Invitations().Create(ctx, token))

	_, err := s.Invitations().Redeem(ctx, "tok", user.ID, now.Add(2*time.Hour))
	require.ErrorIs(t, err, repository.ErrNotFound)

	redeemed, err := s.Invitations().Redeem(ctx, "tok", user.ID, now)
	require.NoError(t, err)
	require.NotNil(t, redeemed.UsedAt)
	require.Equal(t, user.ID, *redeemed.UsedBy)

	_, err = s.Invitations().Redeem(ctx, "tok", user.ID, now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFootprintUpsertKeepsLatest(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	user := seedUser(t, s, 0)
	staff := &domain.StaffMember{Email: "s@example.com", Role: domain.StaffRoleStaff, Status: domain.StaffStatusActive}
	require.NoError(t, s.Staff().Create(ctx, staff))
	persona := &domain.Persona{StaffID: staff.ID, Name: "p", IsActive: true}
	require.NoError(t, s.Personas().Create(ctx, persona))

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	first, err := s.Footprints().Upsert(ctx, user.ID, persona.ID, t1)
	require.NoError(t, err)
	second, err := s.Footprints().Upsert(ctx, user.ID, persona.ID, t2)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, t2, second.CreatedAt)

	stale, err := s.Footprints().Upsert(ctx, user.ID, persona.ID, t1)
	require.NoError(t, err)
	require.Equal(t, t2, stale.CreatedAt)

	list, err := s.Footprints().ListByUser(ctx, user.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
