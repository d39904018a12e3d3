package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// AuthService exchanges credentials for bearer tokens.
type AuthService struct {
	base
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(deps Dependencies, tokens *auth.TokenManager) *AuthService {
	return &AuthService{base: newBase(deps, "auth"), tokenMgr: tokens}
}

// IssuedToken is a signed bearer token with its metadata.
type IssuedToken struct {
	AccessToken string
	Token       domain.Token
}

// LoginUser authenticates an end-user.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, *IssuedToken, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active() {
		return nil, nil, apperrors.NewUnauthorized("account suspended")
	}
	session, err := s.issue(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return user, session, nil
}

// LoginStaff authenticates staff and returns role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, *IssuedToken, error) {
	staff, err := s.store.Staff().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active() {
		return nil, nil, apperrors.NewUnauthorized("account suspended")
	}
	role := staff.Role
	session, err := s.issue(staff.ID, domain.SubjectTypeStaff, &role)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("staff logged in", zap.Int64("staff_id", staff.ID), zap.String("role", string(role)))
	return staff, session, nil
}

func (s *AuthService) issue(subjectID int64, kind domain.SubjectType, role *domain.StaffRole) (*IssuedToken, error) {
	access, meta, err := s.tokenMgr.GenerateToken(subjectID, kind, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &IssuedToken{AccessToken: access, Token: meta}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
