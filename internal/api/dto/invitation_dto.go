package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// IssueInvitationRequest creates an invitation. TTLHours of zero selects
// the configured default.
type IssueInvitationRequest struct {
	Email    string `json:"email" validate:"required,email"`
	TTLHours int    `json:"ttl_hours" validate:"gte=0,lte=8760"`
}

// RedeemInvitationRequest binds a token to an existing account.
type RedeemInvitationRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// RegisterRequest creates an account from an invitation.
type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// InvitationResponse describes a token. The token value and link are only
// filled on issue.
type InvitationResponse struct {
	ID        int64                  `json:"id"`
	Email     string                 `json:"email"`
	Token     string                 `json:"token,omitempty"`
	InviteURL string                 `json:"invite_url,omitempty"`
	State     domain.InvitationState `json:"state"`
	ExpiresAt time.Time              `json:"expires_at"`
	UsedAt    *time.Time             `json:"used_at,omitempty"`
	UsedBy    *int64                 `json:"used_by,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewInvitationResponse(t domain.InvitationToken, now time.Time) InvitationResponse {
	return InvitationResponse{
		ID:        t.ID,
		Email:     t.Email,
		State:     t.State(now),
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		UsedBy:    t.UsedBy,
		CreatedAt: t.CreatedAt,
	}
}

func NewInvitationResponses(tokens []domain.InvitationToken, now time.Time) []InvitationResponse {
	return lo.Map(tokens, func(item domain.InvitationToken, _ int) InvitationResponse {
		return NewInvitationResponse(item, now)
	})
}
