package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	req := require.New(t)

	err := fmt.Errorf("debit: %w", NewInsufficientFunds(0, 1))
	req.ErrorIs(err, ErrInsufficientFunds)
	req.NotErrorIs(err, ErrInvalidAmount)

	req.ErrorIs(NewNotFound("session", nil), ErrNotFound)
	req.ErrorIs(NewExpired("invitation"), ErrExpired)
}

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("wrap: %w", NewAlreadyUsed("invitation")), CodeAlreadyUsed, http.StatusConflict},
		{"plain error becomes internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
		{"sentinel without status becomes 500", ErrInternal, CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got := ToDomainError(tt.err)
			req.Equal(tt.wantCode, got.Code)
			req.Equal(tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	require.NoError(t, MapError(nil))
}
