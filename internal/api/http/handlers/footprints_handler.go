package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/service"
)

// FootprintsHandler exposes persona visit markers.
type FootprintsHandler struct {
	footprints *service.FootprintService
}

// NewFootprintsHandler constructs handler.
func NewFootprintsHandler(footprints *service.FootprintService) *FootprintsHandler {
	return &FootprintsHandler{footprints: footprints}
}

// Record handles POST /footprints.
func (h *FootprintsHandler) Record(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.RecordFootprintRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fp, err := h.footprints.RecordVisit(c.UserContext(), caller.ID, req.PersonaID)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.FootprintResponse{UserID: fp.UserID, PersonaID: fp.PersonaID, VisitedAt: fp.CreatedAt})
}

// Mine handles GET /footprints/mine.
func (h *FootprintsHandler) Mine(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	limit, offset := page(c)
	list, err := h.footprints.ListMine(c.UserContext(), caller.ID, limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewFootprintResponses(list))
}

// ForPersona handles GET /footprints/persona/:id.
func (h *FootprintsHandler) ForPersona(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	personaID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	list, err := h.footprints.ListForPersona(c.UserContext(), caller, personaID, limit, offset)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewFootprintResponses(list))
}
