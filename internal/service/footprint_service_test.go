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

func TestRecordVisitMovesTimestampForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.footprints.RecordVisit(ctx, f.user.ID, f.persona.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.footprints.RecordVisit(ctx, f.user.ID, f.persona.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	mine, err := f.footprints.ListMine(ctx, f.user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, f.clock.Now(), mine[0].CreatedAt)
}

func TestRecordVisitConcurrentKeepsOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const visitors = 12
	var wg sync.WaitGroup
	errs := make([]error, visitors)
	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.footprints.RecordVisit(ctx, f.user.ID, f.persona.ID)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	visitorsOfPersona, err := f.footprints.ListForPersona(ctx, f.operatorCaller(), f.persona.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, visitorsOfPersona, 1)
}

func TestRecordVisitUnknownTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.footprints.RecordVisit(ctx, f.user.ID, 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.footprints.RecordVisit(ctx, 9999, f.persona.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListForPersonaAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.footprints.RecordVisit(ctx, f.user.ID, f.persona.ID)
	require.NoError(t, err)

	stranger := f.newStaff(t, domain.StaffRoleStaff)
	_, err = f.footprints.ListForPersona(ctx, domain.StaffCaller(stranger.ID, domain.StaffRoleStaff), f.persona.ID, 10, 0)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.footprints.ListForPersona(ctx, domain.UserCaller(f.user.ID), f.persona.ID, 10, 0)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	all, err := f.footprints.ListForPersona(ctx, f.adminCaller(), f.persona.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, f.user.ID, all[0].UserID)
}
