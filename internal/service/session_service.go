package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// openAttempts bounds the retries after losing a creation race for a pair.
const openAttempts = 3

// SessionService owns the active -> closed lifecycle of sessions.
type SessionService struct {
	base
}

// NewSessionService constructs the service.
func NewSessionService(deps Dependencies) *SessionService {
	return &SessionService{base: newBase(deps, "session")}
}

// SessionListFilter narrows listings.
type SessionListFilter struct {
	Status *domain.SessionStatus
	Limit  int
	Offset int
}

// OpenOrResume returns the pair's active session, creating it if none
// exists. created reports whether this call created it.
func (s *SessionService) OpenOrResume(ctx context.Context, userID, personaID int64) (session *domain.Session, created bool, err error) {
	ctx, span := s.startSpan(ctx, "session.open_or_resume",
		attribute.Int64("user_id", userID),
		attribute.Int64("persona_id", personaID))
	defer func() { endSpan(span, err) }()

	for attempt := 0; attempt < openAttempts; attempt++ {
		session, created, err = s.openOnce(ctx, userID, personaID)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		s.logger.Debug("lost session creation race; retrying",
			zap.Int64("user_id", userID),
			zap.Int64("persona_id", personaID),
			zap.Int("attempt", attempt+1))
	}
	if errors.Is(err, repository.ErrConflict) {
		return nil, false, apperrors.NewConflict("session creation contended", map[string]any{
			"user_id":    userID,
			"persona_id": personaID,
		})
	}
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}

	if created {
		s.metrics.SessionTransition("opened")
		s.logger.Info("session opened", zap.Int64("session_id", session.ID), zap.Int64("user_id", userID), zap.Int64("persona_id", personaID))
		s.publishEvent(ctx, events.Event{
			Type:        events.EventSessionOpened,
			AggregateID: session.ID,
			Actor:       events.ActorFor(domain.UserCaller(userID)),
			Payload:     events.SessionOpenedPayload{UserID: userID, PersonaID: personaID},
		})
	} else {
		s.metrics.SessionTransition("resumed")
	}
	return session, created, nil
}

func (s *SessionService) openOnce(ctx context.Context, userID, personaID int64) (*domain.Session, bool, error) {
	var (
		session *domain.Session
		created bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Sessions().GetActiveByPair(ctx, userID, personaID)
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		persona, err := tx.Personas().GetByID(ctx, personaID)
		if err != nil {
			return notFound(err, "persona")
		}
		if !persona.IsActive {
			return apperrors.NewNotFound("persona", map[string]any{"persona_id": personaID})
		}

		fresh := &domain.Session{UserID: userID, PersonaID: personaID, CreatedAt: s.now()}
		if err := tx.Sessions().CreateActive(ctx, fresh); err != nil {
			if errors.Is(err, repository.ErrReferenceMissing) {
				return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
			}
			return err
		}
		session, created = fresh, true
		return nil
	})
	return session, created, err
}

// Close moves a session to closed. Closing an already closed session
// succeeds and returns it unchanged.
func (s *SessionService) Close(ctx context.Context, caller domain.Caller, sessionID int64) (session *domain.Session, err error) {
	ctx, span := s.startSpan(ctx, "session.close", attribute.Int64("session_id", sessionID))
	defer func() { endSpan(span, err) }()

	transitioned := false
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		current, err := tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return notFound(err, "session")
		}
		if !canClose(caller, current) {
			return apperrors.NewForbidden("not allowed to close this session")
		}
		if !current.IsActive() {
			session = current
			return nil
		}

		closed, err := tx.Sessions().Close(ctx, sessionID, s.now())
		if errors.Is(err, repository.ErrNotFound) {
			// closed concurrently
			session, err = tx.Sessions().GetByID(ctx, sessionID)
			return err
		}
		if err != nil {
			return err
		}
		session, transitioned = closed, true
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if transitioned {
		s.metrics.SessionTransition("closed")
		s.logger.Info("session closed", zap.Int64("session_id", sessionID), zap.String("by", string(caller.Kind)), zap.Int64("by_id", caller.ID))
		s.publishEvent(ctx, events.Event{
			Type:        events.EventSessionClosed,
			AggregateID: session.ID,
			Actor:       events.ActorFor(caller),
			Payload:     events.SessionClosedPayload{UserID: session.UserID, PersonaID: session.PersonaID},
		})
	}
	return session, nil
}

// List returns the sessions visible to caller, most recently active first.
// Users see their own, staff the ones of personas they operate, admins all.
func (s *SessionService) List(ctx context.Context, caller domain.Caller, filter SessionListFilter) ([]domain.Session, error) {
	repoFilter := repository.SessionFilter{Status: filter.Status, Limit: filter.Limit, Offset: filter.Offset}
	switch {
	case caller.IsUser():
		repoFilter.UserID = &caller.ID
	case caller.IsAdmin():
	case caller.IsStaff():
		repoFilter.OwnerStaffID = &caller.ID
	default:
		return nil, apperrors.NewForbidden("unknown caller")
	}

	sessions, err := s.store.Sessions().List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

func canClose(caller domain.Caller, session *domain.Session) bool {
	switch {
	case caller.IsUser():
		return session.UserID == caller.ID
	case caller.IsStaff():
		return true
	default:
		return false
	}
}
