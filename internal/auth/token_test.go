package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/persona-chat/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	role := domain.StaffRoleAdmin

	signed, meta, err := tm.GenerateToken(42, domain.SubjectTypeStaff, &role)
	require.NoError(t, err)
	require.NotEmpty(t, meta.ID)
	require.Equal(t, time.Hour, meta.ExpiresAt.Sub(meta.IssuedAt))

	claims, err := tm.ParseToken(signed)
	require.NoError(t, err)
	require.Equal(t, domain.SubjectTypeStaff, claims.Kind)
	require.NotNil(t, claims.Role)
	require.Equal(t, domain.StaffRoleAdmin, *claims.Role)
	id, err := claims.SubjectID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTokenManager("secret", time.Minute).WithClock(func() time.Time { return now })
	signed, _, err := tm.GenerateToken(1, domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = tm.ParseToken(signed)
	require.Error(t, err)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	signed, _, err := NewTokenManager("one", time.Hour).GenerateToken(1, domain.SubjectTypeUser, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(signed)
	require.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hash, "hunter2"))
	require.Error(t, ComparePassword(hash, "wrong"))
}

func TestGenerateSecretIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		secret, err := GenerateSecret(32)
		require.NoError(t, err)
		require.Len(t, secret, 43)
		_, dup := seen[secret]
		require.False(t, dup)
		seen[secret] = struct{}{}
	}
}
