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

// FootprintService records which personas a user has visited.
type FootprintService struct {
	base
}

// NewFootprintService constructs the service.
func NewFootprintService(deps Dependencies) *FootprintService {
	return &FootprintService{base: newBase(deps, "footprint")}
}

// RecordVisit upserts the (user, persona) marker, moving its timestamp
// forward to now. Concurrent visits never produce a second row.
func (s *FootprintService) RecordVisit(ctx context.Context, userID, personaID int64) (fp *domain.Footprint, err error) {
	ctx, span := s.startSpan(ctx, "footprint.record",
		attribute.Int64("user_id", userID),
		attribute.Int64("persona_id", personaID))
	defer func() { endSpan(span, err) }()

	if _, err := s.store.Personas().GetByID(ctx, personaID); err != nil {
		return nil, apperrors.MapError(notFound(err, "persona"))
	}

	fp, err = s.store.Footprints().Upsert(ctx, userID, personaID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrReferenceMissing) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Debug("footprint recorded", zap.Int64("user_id", userID), zap.Int64("persona_id", personaID))
	s.publishEvent(ctx, events.Event{
		Type:        events.EventFootprintRecorded,
		AggregateID: fp.ID,
		Actor:       events.ActorFor(domain.UserCaller(userID)),
		Payload:     events.FootprintRecordedPayload{UserID: userID, PersonaID: personaID},
	})
	return fp, nil
}

// ListMine returns the user's footprints, most recent first.
func (s *FootprintService) ListMine(ctx context.Context, userID int64, limit, offset int) ([]domain.Footprint, error) {
	list, err := s.store.Footprints().ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// ListForPersona returns the persona's visitors. Staff may only read
// personas they operate; admins may read any.
func (s *FootprintService) ListForPersona(ctx context.Context, caller domain.Caller, personaID int64, limit, offset int) ([]domain.Footprint, error) {
	if !caller.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	persona, err := s.store.Personas().GetByID(ctx, personaID)
	if err != nil {
		return nil, apperrors.MapError(notFound(err, "persona"))
	}
	if persona.StaffID != caller.ID && !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("persona operated by another staff member")
	}
	list, err := s.store.Footprints().ListByPersona(ctx, personaID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}
