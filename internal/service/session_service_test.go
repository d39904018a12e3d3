package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

func TestOpenOrResumeConcurrentCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	sessions := make([]*domain.Session, callers)
	created := make([]bool, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], created[i], errs[i] = f.sessions.OpenOrResume(ctx, f.user.ID, f.persona.ID)
		}(i)
	}
	wg.Wait()

	createdCount := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, sessions[0].ID, sessions[i].ID)
		if created[i] {
			createdCount++
		}
	}
	require.Equal(t, 1, createdCount)
}

func TestOpenOrResumeRejectsInactivePersona(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.sessions.OpenOrResume(ctx, f.user.ID, 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	inactive := &domain.Persona{StaffID: f.operator.ID, Name: "retired", IsActive: false}
	require.NoError(t, f.store.Personas().Create(ctx, inactive))
	_, _, err = f.sessions.OpenOrResume(ctx, f.user.ID, inactive.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOpenOrResumeUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.sessions.OpenOrResume(context.Background(), 9999, f.persona.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, f.user.ID)

	var closedEvents int
	f.dispatcher.Subscribe(events.EventSessionClosed, func(context.Context, events.Event) error {
		closedEvents++
		return nil
	})

	closed, err := f.sessions.Close(ctx, domain.UserCaller(f.user.ID), session.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusClosed, closed.Status)

	again, err := f.sessions.Close(ctx, domain.UserCaller(f.user.ID), session.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionStatusClosed, again.Status)
	require.Equal(t, 1, closedEvents)

	reopened, created, err := f.sessions.OpenOrResume(ctx, f.user.ID, f.persona.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, session.ID, reopened.ID)
}

func TestCloseAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.openSession(t, f.user.ID)
	other := f.newUser(t)

	_, err := f.sessions.Close(ctx, domain.UserCaller(other.ID), session.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.sessions.Close(ctx, domain.UserCaller(f.user.ID), 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	unrelated := f.newStaff(t, domain.StaffRoleStaff)
	closed, err := f.sessions.Close(ctx, domain.StaffCaller(unrelated.ID, domain.StaffRoleStaff), session.ID)
	require.NoError(t, err)
	require.False(t, closed.IsActive())
}

func TestListScopesByCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.openSession(t, f.user.ID)
	other := f.newUser(t)
	f.openSession(t, other.ID)

	otherOperator := f.newStaff(t, domain.StaffRoleStaff)
	otherPersona := f.newPersona(t, otherOperator.ID)
	_, _, err := f.sessions.OpenOrResume(ctx, f.user.ID, otherPersona.ID)
	require.NoError(t, err)

	userView, err := f.sessions.List(ctx, domain.UserCaller(f.user.ID), SessionListFilter{})
	require.NoError(t, err)
	require.Len(t, userView, 2)

	operatorView, err := f.sessions.List(ctx, f.operatorCaller(), SessionListFilter{})
	require.NoError(t, err)
	require.Len(t, operatorView, 2)

	adminView, err := f.sessions.List(ctx, f.adminCaller(), SessionListFilter{})
	require.NoError(t, err)
	require.Len(t, adminView, 3)

	_, err = f.sessions.Close(ctx, domain.UserCaller(f.user.ID), mine.ID)
	require.NoError(t, err)
	active := domain.SessionStatusActive
	activeView, err := f.sessions.List(ctx, domain.UserCaller(f.user.ID), SessionListFilter{Status: &active})
	require.NoError(t, err)
	require.Len(t, activeView, 1)
}
