package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// StaffService provisions staff accounts, the personas they operate, and
// end-user accounts created outside the invitation flow.
type StaffService struct {
	base
	bcryptCost int
}

// NewStaffService constructs the service.
func NewStaffService(deps Dependencies, bcryptCost int) *StaffService {
	return &StaffService{base: newBase(deps, "staff"), bcryptCost: bcryptCost}
}

func requireAdmin(actor domain.Caller) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor domain.Caller, name, email, password string, role domain.StaffRole) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if role != domain.StaffRoleStaff && role != domain.StaffRoleAdmin {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	email = normalizeEmail(email)
	if existing, err := s.store.Staff().GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		DisplayName:  strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StaffStatusActive,
	}
	if err := s.store.Staff().Create(ctx, staff); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("staff member created", zap.Int64("staff_id", staff.ID), zap.String("role", string(role)))
	return staff, nil
}

// CreatePersona adds an active persona operated by staffID.
func (s *StaffService) CreatePersona(ctx context.Context, actor domain.Caller, staffID int64, name, bio string) (*domain.Persona, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	persona := &domain.Persona{StaffID: staffID, Name: name, Bio: bio, IsActive: true}
	if err := s.store.Personas().Create(ctx, persona); err != nil {
		if errors.Is(err, repository.ErrReferenceMissing) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("persona created", zap.Int64("persona_id", persona.ID), zap.Int64("staff_id", staffID))
	return persona, nil
}

// CreateUser adds an active end-user with a zero balance.
func (s *StaffService) CreateUser(ctx context.Context, actor domain.Caller, name, email, password string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Email:        normalizeEmail(email),
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID))
	return user, nil
}
