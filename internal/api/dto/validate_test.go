package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

func TestValidateReportsJSONFieldNames(t *testing.T) {
	err := Validate(AppendMessageRequest{SessionID: 0, Content: ""})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	details := apperrors.ToDomainError(err).Details
	fields, ok := details["fields"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "required", fields["session_id"])
	require.Equal(t, "required", fields["content"])
}

func TestValidateAcceptsWellFormedRequests(t *testing.T) {
	require.NoError(t, Validate(IssueInvitationRequest{Email: "a@example.com"}))
	require.NoError(t, Validate(AppendMessageRequest{SessionID: 1, Content: "hi"}))

	bad := "not a url"
	require.Error(t, Validate(AppendMessageRequest{SessionID: 1, Content: "hi", ImageURL: &bad}))
	require.Error(t, Validate(IssueInvitationRequest{Email: "nope"}))
}
