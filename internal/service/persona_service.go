package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// PersonaUpdate carries the fields a PATCH may change. Nil fields are kept.
type PersonaUpdate struct {
	Name     *string
	Bio      *string
	IsActive *bool
}

// PersonaService lets users browse personas and lets their operators edit
// or retire them.
type PersonaService struct {
	base
}

// NewPersonaService constructs the service.
func NewPersonaService(deps Dependencies) *PersonaService {
	return &PersonaService{base: newBase(deps, "persona")}
}

// Get returns a persona. Users only see active personas; staff see all.
func (s *PersonaService) Get(ctx context.Context, caller domain.Caller, id int64) (*domain.Persona, error) {
	persona, err := s.store.Personas().GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(notFound(err, "persona"))
	}
	if !persona.IsActive && !caller.IsStaff() {
		return nil, apperrors.NewNotFound("persona", map[string]any{"persona_id": id})
	}
	return persona, nil
}

// ListActive returns the personas a session can be opened with.
func (s *PersonaService) ListActive(ctx context.Context, limit, offset int) ([]domain.Persona, error) {
	list, err := s.store.Personas().List(ctx, repository.PersonaFilter{ActiveOnly: true, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ListMine returns every persona the calling staff member operates.
func (s *PersonaService) ListMine(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.Persona, error) {
	if !caller.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	list, err := s.store.Personas().List(ctx, repository.PersonaFilter{StaffID: &caller.ID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// Update edits a persona. Only its operator or an admin may do so.
// Deactivating stops new sessions from opening; open sessions are kept.
func (s *PersonaService) Update(ctx context.Context, caller domain.Caller, id int64, upd PersonaUpdate) (persona *domain.Persona, err error) {
	ctx, span := s.startSpan(ctx, "persona.update", attribute.Int64("persona_id", id))
	defer func() { endSpan(span, err) }()

	if !caller.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		upd.Name = &name
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Personas().GetByID(ctx, id)
		if err != nil {
			return notFound(err, "persona")
		}
		if current.StaffID != caller.ID && !caller.IsAdmin() {
			return apperrors.NewForbidden("persona operated by another staff member")
		}
		if upd.Name != nil {
			current.Name = *upd.Name
		}
		if upd.Bio != nil {
			current.Bio = *upd.Bio
		}
		if upd.IsActive != nil {
			current.IsActive = *upd.IsActive
		}
		if err := tx.Personas().Update(ctx, current); err != nil {
			return notFound(err, "persona")
		}
		persona = current
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("persona updated", zap.Int64("persona_id", id), zap.Bool("is_active", persona.IsActive), zap.Int64("staff_id", caller.ID))
	return persona, nil
}
