package dto

import (
	"time"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// LoginRequest is shared by user and staff login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an end-user.
type UserResponse struct {
	ID            int64             `json:"id"`
	Email         string            `json:"email"`
	DisplayName   string            `json:"display_name"`
	CreditBalance int64             `json:"credit_balance"`
	Status        domain.UserStatus `json:"status"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID          int64            `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Role        domain.StaffRole `json:"role"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		CreditBalance: u.CreditBalance,
		Status:        u.Status,
	}
}

func NewStaffResponse(s *domain.StaffMember) StaffResponse {
	return StaffResponse{ID: s.ID, Email: s.Email, DisplayName: s.DisplayName, Role: s.Role}
}
