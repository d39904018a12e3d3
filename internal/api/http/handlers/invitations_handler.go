package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/service"
)

// InvitationsHandler exposes the invitation registry.
type InvitationsHandler struct {
	invitations *service.InvitationService
	now         func() time.Time
}

// NewInvitationsHandler constructs handler.
func NewInvitationsHandler(invitations *service.InvitationService, now func() time.Time) *InvitationsHandler {
	if now == nil {
		now = time.Now
	}
	return &InvitationsHandler{invitations: invitations, now: now}
}

// Issue handles POST /invitations.
func (h *InvitationsHandler) Issue(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.IssueInvitationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	invitation, err := h.invitations.Issue(c.UserContext(), caller, req.Email, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		return err
	}
	resp := dto.NewInvitationResponse(*invitation, h.now())
	resp.Token = invitation.Token
	resp.InviteURL = h.invitations.InviteURL(invitation.Token)
	return data(c, fiber.StatusCreated, resp)
}

// List handles GET /invitations.
func (h *InvitationsHandler) List(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	tokens, err := h.invitations.List(c.UserContext(), caller, limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewInvitationResponses(tokens, h.now()))
}

// Verify handles GET /invitations/:token/verify.
func (h *InvitationsHandler) Verify(c *fiber.Ctx) error {
	email, err := h.invitations.Verify(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, fiber.Map{"email": email})
}

// Redeem handles POST /invitations/:token/redeem.
func (h *InvitationsHandler) Redeem(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.RedeemInvitationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	invitation, err := h.invitations.Redeem(c.UserContext(), caller, c.Params("token"), req.UserID)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewInvitationResponse(*invitation, h.now()))
}

// Register handles POST /invitations/:token/register.
func (h *InvitationsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	reg, err := h.invitations.Register(c.UserContext(), c.Params("token"), req.DisplayName)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, fiber.Map{
		"user": dto.NewUserResponse(reg.User),
		"auth": dto.AuthResponse{Token: reg.AccessToken, ExpiresAt: reg.Token.ExpiresAt},
	})
}
