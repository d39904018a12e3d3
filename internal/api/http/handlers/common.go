package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/api/dto"
	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func callerOf(c *fiber.Ctx) (domain.Caller, error) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

// bind parses the JSON body into req and validates it.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{"field": name})
	}
	return id, nil
}

func queryInt64(c *fiber.Ctx, name string, required bool) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			return 0, apperrors.NewValidationError(name+" is required", map[string]any{"field": name})
		}
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{"field": name})
	}
	return v, nil
}

func page(c *fiber.Ctx) (int, int) {
	return repository.NormalizePage(c.QueryInt("limit"), c.QueryInt("offset"), defaultPageSize, maxPageSize)
}

func data(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}
