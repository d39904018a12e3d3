package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/service"
)

// AdminHandler provisions staff, personas and users.
type AdminHandler struct {
	staff *service.StaffService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(staff *service.StaffService) *AdminHandler {
	return &AdminHandler{staff: staff}
}

// CreateStaff handles POST /admin/staff.
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staff.CreateStaffMember(c.UserContext(), caller, req.DisplayName, req.Email, req.Password, domain.StaffRole(req.Role))
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewStaffResponse(staff))
}

// CreatePersona handles POST /admin/personas.
func (h *AdminHandler) CreatePersona(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.CreatePersonaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	persona, err := h.staff.CreatePersona(c.UserContext(), caller, req.StaffID, req.Name, req.Bio)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewPersonaResponse(persona))
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.staff.CreateUser(c.UserContext(), caller, req.DisplayName, req.Email, req.Password)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusCreated, dto.NewUserResponse(user))
}
