package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/persona-chat/internal/domain"
	"github.com/spec-kit/persona-chat/internal/events"
	"github.com/spec-kit/persona-chat/internal/repository"
	apperrors "github.com/spec-kit/persona-chat/pkg/util"
)

// LedgerService is the only writer of user credit balances. Every mutation
// writes a ledger entry in the same transaction.
type LedgerService struct {
	base
}

// NewLedgerService constructs the service.
func NewLedgerService(deps Dependencies) *LedgerService {
	return &LedgerService{base: newBase(deps, "ledger")}
}

// Debit removes amount from the user's balance, failing with
// INSUFFICIENT_FUNDS rather than going negative. Admin only.
func (s *LedgerService) Debit(ctx context.Context, caller domain.Caller, userID, amount int64) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, apperrors.NewInvalidAmount(amount)
	}
	return s.mutate(ctx, caller, userID, -amount, domain.LedgerReasonDebit)
}

// Credit grants amount to the user's balance. Admin only.
func (s *LedgerService) Credit(ctx context.Context, caller domain.Caller, userID, amount int64) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, apperrors.NewInvalidAmount(amount)
	}
	return s.mutate(ctx, caller, userID, amount, domain.LedgerReasonGrant)
}

// Charge tops up the calling user's own balance.
func (s *LedgerService) Charge(ctx context.Context, caller domain.Caller, amount int64) (int64, error) {
	if !caller.IsUser() {
		return 0, apperrors.NewForbidden("end-user required")
	}
	if amount <= 0 {
		return 0, apperrors.NewInvalidAmount(amount)
	}
	return s.mutate(ctx, caller, caller.ID, amount, domain.LedgerReasonCharge)
}

// Balance returns the user's current balance.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.store.Ledger().Balance(ctx, userID)
	if err != nil {
		return 0, apperrors.MapError(notFound(err, "user"))
	}
	return balance, nil
}

// Entries lists the user's ledger history, newest first.
func (s *LedgerService) Entries(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, error) {
	entries, err := s.store.Ledger().ListEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// mutate applies a non-zero delta; callers validate its sign.
func (s *LedgerService) mutate(ctx context.Context, caller domain.Caller, userID, delta int64, reason domain.LedgerReason) (balance int64, err error) {
	ctx, span := s.startSpan(ctx, "ledger.mutate",
		attribute.Int64("user_id", userID),
		attribute.Int64("delta", delta),
		attribute.String("reason", string(reason)))
	defer func() { endSpan(span, err) }()

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var txErr error
		if delta < 0 {
			balance, txErr = debitTx(ctx, tx, userID, -delta)
		} else {
			balance, txErr = creditTx(ctx, tx, userID, delta)
		}
		if txErr != nil {
			return txErr
		}
		return recordEntry(ctx, tx, userID, delta, balance, reason, nil)
	})
	if err != nil {
		s.logger.Debug("ledger mutation rejected", zap.Int64("user_id", userID), zap.Int64("delta", delta), zap.Error(err))
		return 0, apperrors.MapError(err)
	}

	if delta < 0 {
		s.metrics.CreditsMoved("debit", -delta)
	} else {
		s.metrics.CreditsMoved("credit", delta)
	}
	s.logger.Info("balance changed", zap.Int64("user_id", userID), zap.Int64("delta", delta), zap.Int64("balance", balance))
	s.publishEvent(ctx, events.Event{
		Type:        events.EventCreditsChanged,
		AggregateID: userID,
		Actor:       events.ActorFor(caller),
		Payload:     events.CreditsChangedPayload{Delta: delta, Balance: balance, Reason: reason},
	})
	return balance, nil
}

// debitTx applies a conditional debit inside tx. It is shared with message
// append so that charge and append commit as one unit.
func debitTx(ctx context.Context, tx repository.Store, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.NewInvalidAmount(amount)
	}
	balance, err := tx.Ledger().Debit(ctx, userID, amount)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return 0, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	case errors.Is(err, repository.ErrInsufficientBalance):
		current, balErr := tx.Ledger().Balance(ctx, userID)
		if balErr != nil {
			return 0, balErr
		}
		return 0, apperrors.NewInsufficientFunds(current, amount)
	case err != nil:
		return 0, err
	}
	if balance < 0 {
		return 0, fmt.Errorf("ledger invariant violated: user %d balance %d", userID, balance)
	}
	return balance, nil
}

func creditTx(ctx context.Context, tx repository.Store, userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperrors.NewInvalidAmount(amount)
	}
	balance, err := tx.Ledger().Credit(ctx, userID, amount)
	switch {
	case errors.Is(err, repository.ErrBalanceOverflow):
		return 0, apperrors.NewAmountTooLarge(amount)
	case err != nil:
		return 0, notFound(err, "user")
	}
	return balance, nil
}

func recordEntry(ctx context.Context, tx repository.Store, userID, delta, balance int64, reason domain.LedgerReason, ref *int64) error {
	return tx.Ledger().AddEntry(ctx, &domain.LedgerEntry{
		UserID:       userID,
		Delta:        delta,
		BalanceAfter: balance,
		Reason:       reason,
		ReferenceID:  ref,
	})
}
