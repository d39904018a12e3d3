package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/service"
)

// AuthHandler exposes login endpoints for users and staff.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// LoginUser handles POST /auth/users/login.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, issued, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return data(c, fiber.StatusOK, fiber.Map{
		"user": dto.NewUserResponse(user),
		"auth": dto.AuthResponse{Token: issued.AccessToken, ExpiresAt: issued.Token.ExpiresAt},
	})
}

// LoginStaff handles POST /auth/staff/login.
func (h *AuthHandler) LoginStaff(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	staff, issued, err := h.auth.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return data(c, fiber.StatusOK, fiber.Map{
		"staff": dto.NewStaffResponse(staff),
		"auth":  dto.AuthResponse{Token: issued.AccessToken, ExpiresAt: issued.Token.ExpiresAt},
	})
}
