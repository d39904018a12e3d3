package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/config"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/persistence"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// newPostgresFixture runs the services against TEST_POSTGRES_DSN, where
// transactions really interleave.
func newPostgresFixture(t *testing.T) *fixture {
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

	clock := &testClock{now: time.Now().UTC().Truncate(time.Microsecond)}
	return newFixtureOn(t, repository.NewPostgresStore(pg.PoolHandle()), clock)
}

func TestPostgresConcurrentRegisterLosersSeeAlreadyUsed(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	invitation, err := f.invitations.Issue(ctx, f.adminCaller(), "racer-"+runID+"@example.com", 0)
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

func TestPostgresConcurrentRedeemLosersSeeAlreadyUsed(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	invitation, user := f.inviteeWithToken(t, "redeem-"+runID+"@example.com", 0)

	const racers = 8
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

func TestPostgresConcurrentOpenOrResume(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	ids := make([]int64, racers)
	created := make([]bool, racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, isNew, err := f.sessions.OpenOrResume(ctx, f.user.ID, f.persona.ID)
			errs[i], created[i] = err, isNew
			if err == nil {
				ids[i] = session.ID
			}
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range errs {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
		if created[i] {
			fresh++
		}
	}
	require.Equal(t, 1, fresh)
}

func TestPostgresConcurrentAppendsChargeExactly(t *testing.T) {
	f := newPostgresFixture(t)
	ctx := context.Background()
	f.fund(t, f.user.ID, 5)
	session := f.openSession(t, f.user.ID)

	const senders = 12
	var wg sync.WaitGroup
	errs := make([]error, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.messages.Append(ctx, domain.UserCaller(f.user.ID), AppendInput{SessionID: session.ID, Content: "hi"})
		}(i)
	}
	wg.Wait()

	sent := 0
	for _, err := range errs {
		if err == nil {
			sent++
			continue
		}
		require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	}
	require.Equal(t, 5, sent)
	require.Zero(t, f.balance(t, f.user.ID))

	poll, err := f.messages.Poll(ctx, domain.UserCaller(f.user.ID), session.ID, 0)
	require.NoError(t, err)
	require.Len(t, poll.Messages, 5)
}
