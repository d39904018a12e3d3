package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/cache"
	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// MessageService appends to and polls session message logs.
type MessageService struct {
	base
	hints       cache.HighWaterMarks
	messageCost int64
}

// NewMessageService constructs the service. cost is charged per user
// message; persona messages are free.
func NewMessageService(deps Dependencies, hints cache.HighWaterMarks, cost int64) *MessageService {
	if hints == nil {
		hints = cache.Noop{}
	}
	return &MessageService{base: newBase(deps, "message"), hints: hints, messageCost: cost}
}

// AppendInput describes a new message.
type AppendInput struct {
	SessionID      int64
	Content        string
	Title          *string
	ImageURL       *string
	IdempotencyKey *string
}

// PollResult carries the messages after a cursor and the next cursor.
type PollResult struct {
	Messages   []domain.Message `json:"messages"`
	NewAfterID int64            `json:"new_after_id"`
}

// Append stores a message from caller. For a user sender the debit and the
// insert commit together. A repeated idempotency key returns the message
// stored the first time without charging again.
func (s *MessageService) Append(ctx context.Context, caller domain.Caller, in AppendInput) (msg *domain.Message, err error) {
	ctx, span := s.startSpan(ctx, "message.append",
		attribute.Int64("session_id", in.SessionID),
		attribute.String("caller_kind", string(caller.Kind)))
	defer func() { endSpan(span, err) }()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}

	replayed := false
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		session, err := tx.Sessions().LockByID(ctx, in.SessionID)
		if err != nil {
			return notFound(err, "session")
		}
		kind, senderID, err := authorizeParticipant(ctx, tx, caller, session)
		if err != nil {
			return err
		}
		if !session.IsActive() {
			return apperrors.NewInvalidState("session is closed", map[string]any{"session_id": session.ID})
		}

		if in.IdempotencyKey != nil {
			existing, err := tx.Messages().GetByIdempotencyKey(ctx, session.ID, kind, *in.IdempotencyKey)
			if err == nil {
				msg, replayed = existing, true
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		var (
			cost    int64
			balance int64
		)
		if kind == domain.SenderKindUser && s.messageCost > 0 {
			cost = s.messageCost
			if balance, err = debitTx(ctx, tx, senderID, cost); err != nil {
				return err
			}
		}

		now := s.now()
		created := &domain.Message{
			SessionID:      session.ID,
			SenderKind:     kind,
			SenderID:       senderID,
			Title:          in.Title,
			Content:        content,
			ImageURL:       in.ImageURL,
			CreditCost:     cost,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      now,
		}
		if err := tx.Messages().Create(ctx, created); err != nil {
			return err
		}
		if cost > 0 {
			if err := recordEntry(ctx, tx, senderID, -cost, balance, domain.LedgerReasonMessage, &created.ID); err != nil {
				return err
			}
		}
		if err := tx.Sessions().Touch(ctx, session.ID, now); err != nil {
			return err
		}
		// The hint must never lag the datastore, so it is raised before
		// commit and a failure aborts the append.
		if err := s.hints.Advance(ctx, session.ID, created.ID); err != nil {
			return fmt.Errorf("advance poll hint: %w", err)
		}
		msg = created
		return nil
	})
	if err != nil {
		s.logger.Debug("append rejected", zap.Int64("session_id", in.SessionID), zap.Error(err))
		return nil, apperrors.MapError(err)
	}
	if replayed {
		s.logger.Debug("append replayed", zap.Int64("session_id", in.SessionID), zap.Int64("message_id", msg.ID))
		return msg, nil
	}

	s.metrics.MessageAppended(string(msg.SenderKind))
	if msg.CreditCost > 0 {
		s.metrics.CreditsMoved("debit", msg.CreditCost)
	}
	s.logger.Info("message appended",
		zap.Int64("session_id", msg.SessionID),
		zap.Int64("message_id", msg.ID),
		zap.String("sender_kind", string(msg.SenderKind)),
		zap.Int64("credit_cost", msg.CreditCost))
	s.publishEvent(ctx, events.Event{
		Type:        events.EventMessageAppended,
		AggregateID: msg.SessionID,
		Actor:       events.ActorFor(caller),
		Payload: events.MessageAppendedPayload{
			MessageID:   msg.ID,
			SenderKind:  msg.SenderKind,
			SenderID:    msg.SenderID,
			CreditCost:  msg.CreditCost,
			BodyPreview: preview(msg.Content, 80),
		},
	})
	return msg, nil
}

// Poll returns the session's messages with id > afterID in id order. Closed
// sessions remain readable.
func (s *MessageService) Poll(ctx context.Context, caller domain.Caller, sessionID, afterID int64) (result PollResult, err error) {
	ctx, span := s.startSpan(ctx, "message.poll",
		attribute.Int64("session_id", sessionID),
		attribute.Int64("after_id", afterID))
	defer func() { endSpan(span, err) }()

	if afterID < 0 {
		return PollResult{}, apperrors.NewValidationError("after_id must not be negative", map[string]any{"after_id": afterID})
	}

	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return PollResult{}, apperrors.MapError(notFound(err, "session"))
	}
	if _, _, err := authorizeParticipant(ctx, s.store, caller, session); err != nil {
		return PollResult{}, apperrors.MapError(err)
	}

	empty := PollResult{Messages: []domain.Message{}, NewAfterID: afterID}
	latest, known, hintErr := s.hints.Latest(ctx, sessionID)
	switch {
	case hintErr != nil:
		s.metrics.PollHint("error")
		s.logger.Debug("poll hint unavailable", zap.Int64("session_id", sessionID), zap.Error(hintErr))
	case known && latest <= afterID:
		s.metrics.PollHint("hit")
		return empty, nil
	default:
		s.metrics.PollHint("miss")
	}

	messages, err := s.store.Messages().ListAfter(ctx, sessionID, afterID)
	if err != nil {
		return PollResult{}, apperrors.MapError(err)
	}
	if len(messages) == 0 {
		return empty, nil
	}
	return PollResult{Messages: messages, NewAfterID: messages[len(messages)-1].ID}, nil
}

// authorizeParticipant resolves which side of the session caller speaks
// for. Users must own the session; staff must operate its persona unless
// they are admins.
func authorizeParticipant(ctx context.Context, store repository.Store, caller domain.Caller, session *domain.Session) (domain.SenderKind, int64, error) {
	switch {
	case caller.IsUser():
		if session.UserID != caller.ID {
			return "", 0, apperrors.NewForbidden("session belongs to another user")
		}
		return domain.SenderKindUser, caller.ID, nil
	case caller.IsStaff():
		persona, err := store.Personas().GetByID(ctx, session.PersonaID)
		if err != nil {
			return "", 0, notFound(err, "persona")
		}
		if persona.StaffID != caller.ID && !caller.IsAdmin() {
			return "", 0, apperrors.NewForbidden("persona operated by another staff member")
		}
		return domain.SenderKindPersona, persona.ID, nil
	default:
		return "", 0, apperrors.NewForbidden("unknown caller")
	}
}
