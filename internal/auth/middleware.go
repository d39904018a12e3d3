package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Staff       *domain.StaffMember
}

// Caller converts the principal into the tagged identity used by services.
func (p *Principal) Caller() domain.Caller {
	if p.SubjectType == domain.SubjectTypeStaff && p.Staff != nil {
		return domain.StaffCaller(p.Staff.ID, p.Staff.Role)
	}
	if p.User != nil {
		return domain.UserCaller(p.User.ID)
	}
	return domain.Caller{}
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	store  repository.Store
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, store repository.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, store: store}
}

// Handle enforces authentication for protected routes. Suspended accounts
// are rejected as unauthenticated.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	subjectID, _ := claims.SubjectID()

	principal := &Principal{SubjectType: claims.Kind}
	ctx := c.UserContext()

	switch claims.Kind {
	case domain.SubjectTypeUser:
		user, err := m.store.Users().GetByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		if !user.Active() {
			return apperrors.NewUnauthorized("account suspended")
		}
		principal.User = user
	case domain.SubjectTypeStaff:
		staff, err := m.store.Staff().GetByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("staff not found")
			}
			return apperrors.MapError(err)
		}
		if !staff.Active() {
			return apperrors.NewUnauthorized("account suspended")
		}
		principal.Staff = staff
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// CallerFromContext returns the caller identity of an authenticated request.
func CallerFromContext(c *fiber.Ctx) (domain.Caller, bool) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return domain.Caller{}, false
	}
	return principal.Caller(), true
}
