package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/service"
)

// PersonasHandler lets callers browse personas and operators edit them.
type PersonasHandler struct {
	personas *service.PersonaService
}

// NewPersonasHandler constructs handler.
func NewPersonasHandler(personas *service.PersonaService) *PersonasHandler {
	return &PersonasHandler{personas: personas}
}

// List handles GET /personas.
func (h *PersonasHandler) List(c *fiber.Ctx) error {
	limit, offset := page(c)
	list, err := h.personas.ListActive(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPersonaResponses(list))
}

// Mine handles GET /personas/mine.
func (h *PersonasHandler) Mine(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	list, err := h.personas.ListMine(c.UserContext(), caller, limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPersonaResponses(list))
}

// Get handles GET /personas/:id.
func (h *PersonasHandler) Get(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	persona, err := h.personas.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPersonaResponse(persona))
}

// Update handles PATCH /personas/:id.
func (h *PersonasHandler) Update(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdatePersonaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	persona, err := h.personas.Update(c.UserContext(), caller, id, service.PersonaUpdate{
		Name:     req.Name,
		Bio:      req.Bio,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewPersonaResponse(persona))
}
