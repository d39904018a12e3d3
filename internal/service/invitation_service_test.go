package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/persona-chat/internal/domain"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

func (f *fixture) inviteeWithToken(t *testing.T, email string, ttl time.Duration) (*domain.InvitationToken, *domain.User) {
	t.Helper()
	ctx := context.Background()
	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), email, ttl)
	require.NoError(t, err)
	user := &domain.User{Email: email, DisplayName: "invitee", Status: domain.UserStatusActive}
	require.NoError(t, f.store.Users().Create(ctx, user))
	return invitation, user
}

func TestIssueNormalizesAndBindsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "  New.Person@Example.com ", 0)
	require.NoError(t, err)
	require.Equal(t, "new.person@example.com", invitation.Email)
	require.Equal(t, f.clock.Now().Add(72*time.Hour), invitation.ExpiresAt)
	require.GreaterOrEqual(t, len(invitation.Token), 43)
	require.Contains(t, f.invitations.InviteURL(invitation.Token), "?token=")

	email, err := f.invitations.Verify(ctx, invitation.Token)
	require.NoError(t, err)
	require.Equal(t, "new.person@example.com", email)

	listed, err := f.invitations.List(ctx, f.adminCaller(), 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestIssueRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.invitations.Issue(ctx, f.operatorCaller(), "a@example.com", 0)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.invitations.Issue(ctx, domain.UserCaller(f.user.ID), "a@example.com", 0)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.invitations.Issue(ctx, f.adminCaller(), "not-an-email", 0)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.invitations.Issue(ctx, f.adminCaller(), f.user.Email, 0)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	suspended := &domain.User{Email: "gone@example.com", DisplayName: "gone", Status: domain.UserStatusSuspended}
	require.NoError(t, f.store.Users().Create(ctx, suspended))
	_, err = f.invitations.Issue(ctx, f.adminCaller(), "Gone@example.com", 0)
	require.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = f.invitations.List(ctx, f.operatorCaller(), 10, 0)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestVerifyFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.invitations.Verify(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "late@example.com", time.Hour)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	_, err = f.invitations.Verify(ctx, invitation.Token)
	require.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestRedeemExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, user := f.inviteeWithToken(t, "once@example.com", 0)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.invitations.Redeem(ctx, f.adminCaller(), invitation.Token, user.ID)
		}(i)
	}
	wg.Wait()

	succeeded, alreadyUsed := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.ToDomainError(err).Code == apperrors.CodeAlreadyUsed:
			alreadyUsed++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, racers-1, alreadyUsed)

	stored, err := f.store.Invitations().GetByToken(ctx, invitation.Token)
	require.NoError(t, err)
	require.NotNil(t, stored.UsedAt)
	require.Equal(t, user.ID, *stored.UsedBy)
}

func TestRedeemExpiredLeavesTokenUnused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, user := f.inviteeWithToken(t, "expired@example.com", time.Hour)

	f.clock.Advance(2 * time.Hour)
	_, err := f.invitations.Redeem(ctx, f.adminCaller(), invitation.Token, user.ID)
	require.ErrorIs(t, err, apperrors.ErrExpired)

	stored, err := f.store.Invitations().GetByToken(ctx, invitation.Token)
	require.NoError(t, err)
	require.Nil(t, stored.UsedAt)
	require.Nil(t, stored.UsedBy)
}

func TestRedeemRejectsMismatchedEmailAndNonAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, _ := f.inviteeWithToken(t, "bound@example.com", 0)

	_, err := f.invitations.Redeem(ctx, f.adminCaller(), invitation.Token, f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.invitations.Redeem(ctx, f.operatorCaller(), invitation.Token, f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.invitations.Redeem(ctx, f.adminCaller(), "missing", f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegisterCreatesUserAndConsumesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "fresh@example.com", 0)
	require.NoError(t, err)

	reg, err := f.invitations.Register(ctx, invitation.Token, "Fresh")
	require.NoError(t, err)
	require.Equal(t, "fresh@example.com", reg.User.Email)
	require.NotEmpty(t, reg.AccessToken)
	require.Equal(t, reg.User.ID, reg.Token.SubjectID)
	require.Zero(t, f.balance(t, reg.User.ID))

	_, err = f.invitations.Register(ctx, invitation.Token, "Again")
	require.ErrorIs(t, err, apperrors.ErrAlreadyUsed)

	_, err = f.invitations.Verify(ctx, invitation.Token)
	require.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
}

func TestConcurrentRegisterLosersSeeAlreadyUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "racer@example.com", 0)
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.invitations.Register(ctx, invitation.Token, "Racer")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrAlreadyUsed)
	}
	require.Equal(t, 1, succeeded)
}

func TestRegisterRequiresDisplayName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "nameless@example.com", 0)
	require.NoError(t, err)

	_, err = f.invitations.Register(ctx, invitation.Token, "  ")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	email, err := f.invitations.Verify(ctx, invitation.Token)
	require.NoError(t, err)
	require.Equal(t, "nameless@example.com", email)
}
