package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/auth"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

const (
	invitationTokenBytes = 32
	issueAttempts        = 3
	// registrationPasswordBytes sizes the throwaway password of accounts
	// created through an invitation.
	registrationPasswordBytes = 16
)

// InvitationConfig holds issuance policy.
type InvitationConfig struct {
	DefaultTTL time.Duration
	BaseURL    string
	BcryptCost int
}

// InvitationService issues, verifies and redeems single-use invitation
// tokens.
type InvitationService struct {
	base
	cfg    InvitationConfig
	tokens *auth.TokenManager
}

// NewInvitationService constructs the service.
func NewInvitationService(deps Dependencies, cfg InvitationConfig, tokens *auth.TokenManager) *InvitationService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 72 * time.Hour
	}
	return &InvitationService{base: newBase(deps, "invitation"), cfg: cfg, tokens: tokens}
}

// Registration is the outcome of registering through an invitation.
type Registration struct {
	User        *domain.User
	AccessToken string
	Token       domain.Token
}

// InviteURL renders the link handed to the invitee.
func (s *InvitationService) InviteURL(token string) string {
	if s.cfg.BaseURL == "" {
		return ""
	}
	return s.cfg.BaseURL + "?token=" + url.QueryEscape(token)
}

// Issue creates a pending token for email. Only admins may issue, and not
// for an email that already belongs to a user. A non-positive ttl
// selects the configured default.
func (s *InvitationService) Issue(ctx context.Context, caller domain.Caller, email string, ttl time.Duration) (invitation *domain.InvitationToken, err error) {
	ctx, span := s.startSpan(ctx, "invitation.issue")
	defer func() { endSpan(span, err) }()

	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email is required", map[string]any{"field": "email"})
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	// Register refuses any email already on file, so a token for a
	// suspended account could never be consumed either.
	existing, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Active():
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	case err == nil:
		return nil, apperrors.NewConflict("email belongs to a suspended account", map[string]any{"email": email, "status": existing.Status})
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.MapError(err)
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		secret, genErr := auth.GenerateSecret(invitationTokenBytes)
		if genErr != nil {
			return nil, apperrors.NewInternalError(genErr)
		}
		now := s.now()
		invitation = &domain.InvitationToken{
			Token:     secret,
			Email:     email,
			CreatedBy: caller.ID,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		err = s.store.Invitations().Create(ctx, invitation)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrReferenceMissing) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": caller.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.metrics.InvitationOutcome("issue", "ok")
	s.logger.Info("invitation issued", zap.Int64("invitation_id", invitation.ID), zap.String("email", email), zap.Time("expires_at", invitation.ExpiresAt))
	s.publishEvent(ctx, events.Event{
		Type:        events.EventInvitationIssued,
		AggregateID: invitation.ID,
		Actor:       events.ActorFor(caller),
		Payload:     events.InvitationIssuedPayload{Email: email, ExpiresAt: invitation.ExpiresAt},
	})
	return invitation, nil
}

// Verify returns the email bound to a pending token. It never mutates.
func (s *InvitationService) Verify(ctx context.Context, token string) (string, error) {
	invitation, err := s.store.Invitations().GetByToken(ctx, token)
	if err != nil {
		return "", apperrors.MapError(notFound(err, "invitation"))
	}
	if err := checkUsable(invitation, s.now()); err != nil {
		s.metrics.InvitationOutcome("verify", outcomeOf(err))
		return "", err
	}
	s.metrics.InvitationOutcome("verify", "ok")
	return invitation.Email, nil
}

// Redeem consumes token on behalf of an existing user whose email matches
// the one the token is bound to. Exactly one of any number of concurrent
// redemptions succeeds; the rest see ALREADY_USED.
func (s *InvitationService) Redeem(ctx context.Context, caller domain.Caller, token string, userID int64) (invitation *domain.InvitationToken, err error) {
	ctx, span := s.startSpan(ctx, "invitation.redeem", attribute.Int64("user_id", userID))
	defer func() { endSpan(span, err) }()

	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Invitations().LockByToken(ctx, token)
		if err != nil {
			return notFound(err, "invitation")
		}
		if err := checkUsable(current, s.now()); err != nil {
			return err
		}
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if normalizeEmail(user.Email) != current.Email {
			return apperrors.NewValidationError("invitation is bound to a different email", map[string]any{"user_id": userID})
		}
		invitation, err = redeemTx(ctx, tx, token, userID, s.now())
		return err
	})
	if err != nil {
		s.metrics.InvitationOutcome("redeem", outcomeOf(err))
		return nil, apperrors.MapError(err)
	}
	s.afterRedeem(ctx, invitation, caller)
	return invitation, nil
}

// Register creates a user for the token's email and consumes the token in
// one transaction, returning a bearer token for the new account.
func (s *InvitationService) Register(ctx context.Context, token, displayName string) (reg *Registration, err error) {
	ctx, span := s.startSpan(ctx, "invitation.register")
	defer func() { endSpan(span, err) }()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperrors.NewValidationError("display_name is required", map[string]any{"field": "display_name"})
	}

	password, err := auth.GenerateSecret(registrationPasswordBytes)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var (
		user       *domain.User
		invitation *domain.InvitationToken
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Invitations().LockByToken(ctx, token)
		if err != nil {
			return notFound(err, "invitation")
		}
		if err := checkUsable(current, s.now()); err != nil {
			return err
		}
		if _, err := tx.Users().GetByEmail(ctx, current.Email); err == nil {
			return apperrors.NewConflict("email already registered", map[string]any{"email": current.Email})
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		user = &domain.User{
			Email:        current.Email,
			DisplayName:  displayName,
			PasswordHash: hash,
			Status:       domain.UserStatusActive,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewConflict("email already registered", map[string]any{"email": current.Email})
			}
			return err
		}
		invitation, err = redeemTx(ctx, tx, token, user.ID, s.now())
		return err
	})
	if err != nil {
		s.metrics.InvitationOutcome("register", outcomeOf(err))
		return nil, apperrors.MapError(err)
	}
	s.afterRedeem(ctx, invitation, domain.UserCaller(user.ID))

	access, meta, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Registration{User: user, AccessToken: access, Token: meta}, nil
}

// List returns issued tokens, newest first.
func (s *InvitationService) List(ctx context.Context, caller domain.Caller, limit, offset int) ([]domain.InvitationToken, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("admin role required")
	}
	tokens, err := s.store.Invitations().List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tokens, nil
}

func (s *InvitationService) afterRedeem(ctx context.Context, invitation *domain.InvitationToken, actor domain.Caller) {
	s.metrics.InvitationOutcome("redeem", "ok")
	s.logger.Info("invitation redeemed", zap.Int64("invitation_id", invitation.ID), zap.Int64p("used_by", invitation.UsedBy))
	var usedBy int64
	if invitation.UsedBy != nil {
		usedBy = *invitation.UsedBy
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventInvitationRedeemed,
		AggregateID: invitation.ID,
		Actor:       events.ActorFor(actor),
		Payload:     events.InvitationRedeemedPayload{Email: invitation.Email, UserID: usedBy},
	})
}

// redeemTx performs the conditional consume and, when it matches nothing,
// re-reads the token to report why.
func redeemTx(ctx context.Context, tx repository.Store, token string, userID int64, now time.Time) (*domain.InvitationToken, error) {
	redeemed, err := tx.Invitations().Redeem(ctx, token, userID, now)
	switch {
	case err == nil:
		return redeemed, nil
	case errors.Is(err, repository.ErrReferenceMissing):
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	current, err := tx.Invitations().GetByToken(ctx, token)
	if err != nil {
		return nil, notFound(err, "invitation")
	}
	if err := checkUsable(current, now); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("invitation %d neither consumed nor usable", current.ID)
}

func checkUsable(invitation *domain.InvitationToken, now time.Time) error {
	switch invitation.State(now) {
	case domain.InvitationConsumed:
		return apperrors.NewAlreadyUsed("invitation")
	case domain.InvitationExpired:
		return apperrors.NewExpired("invitation")
	default:
		return nil
	}
}

func outcomeOf(err error) string {
	if de := apperrors.ToDomainError(err); de != nil {
		return strings.ToLower(de.Code)
	}
	return "ok"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
