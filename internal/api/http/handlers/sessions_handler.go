package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/service"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// VisitRecorder records that a user looked at a persona.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, userID, personaID int64) (*domain.Footprint, error)
}

// SessionsHandler exposes the session lifecycle.
type SessionsHandler struct {
	sessions *service.SessionService
	visits   VisitRecorder
	logger   *zap.Logger
}

// NewSessionsHandler constructs handler. Opening a session also records a
// footprint for the visited persona when visits is non-nil.
func NewSessionsHandler(sessions *service.SessionService, visits VisitRecorder, logger *zap.Logger) *SessionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionsHandler{sessions: sessions, visits: visits, logger: logger}
}

// Open handles POST /sessions.
func (h *SessionsHandler) Open(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.OpenSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, created, err := h.sessions.OpenOrResume(c.UserContext(), caller.ID, req.PersonaID)
	if err != nil {
		return err
	}
	// The session is already committed; footprint failures are only logged.
	if h.visits != nil {
		if _, err := h.visits.RecordVisit(c.UserContext(), caller.ID, req.PersonaID); err != nil {
			h.logger.Warn("footprint not recorded",
				zap.Int64("user_id", caller.ID),
				zap.Int64("persona_id", req.PersonaID),
				zap.Int64("session_id", session.ID),
				zap.Error(err))
		}
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return data(c, status, fiber.Map{
		"session": dto.NewSessionResponse(*session),
		"created": created,
	})
}

// List handles GET /sessions?status=&limit=&offset=.
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	filter := service.SessionListFilter{}
	filter.Limit, filter.Offset = page(c)
	if raw := c.Query("status"); raw != "" {
		status := domain.SessionStatus(raw)
		if status != domain.SessionStatusActive && status != domain.SessionStatusClosed {
			return apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
		}
		filter.Status = &status
	}

	sessions, err := h.sessions.List(c.UserContext(), caller, filter)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewSessionResponses(sessions))
}

// Close handles POST /sessions/:id/close.
func (h *SessionsHandler) Close(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	session, err := h.sessions.Close(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return data(c, fiber.StatusOK, dto.NewSessionResponse(*session))
}
