package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/persona-chat/internal/domain"
)

// CreateStaffRequest provisions a staff account.
type CreateStaffRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=12,max=72"`
	Role        string `json:"role" validate:"required,oneof=staff admin"`
}

// CreatePersonaRequest provisions a persona for a staff operator.
type CreatePersonaRequest struct {
	StaffID int64  `json:"staff_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,max=100"`
	Bio     string `json:"bio" validate:"max=2000"`
}

// CreateUserRequest provisions an end-user outside the invitation flow.
type CreateUserRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=12,max=72"`
}

// UpdatePersonaRequest edits a persona. Omitted fields are kept.
type UpdatePersonaRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=2000"`
	IsActive *bool   `json:"is_active"`
}

// PersonaResponse describes a persona.
type PersonaResponse struct {
	ID        int64     `json:"id"`
	StaffID   int64     `json:"staff_id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPersonaResponse(p *domain.Persona) PersonaResponse {
	return PersonaResponse{
		ID:        p.ID,
		StaffID:   p.StaffID,
		Name:      p.Name,
		Bio:       p.Bio,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

func NewPersonaResponses(list []domain.Persona) []PersonaResponse {
	return lo.Map(list, func(item domain.Persona, _ int) PersonaResponse {
		return NewPersonaResponse(&item)
	})
}
