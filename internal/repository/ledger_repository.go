package repository

import (
	"context"
	"errors"
	"math"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

type ledgerRepository struct {
	db DBTX
}

// NewLedgerRepository builds repository.
func NewLedgerRepository(db DBTX) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT credit_balance FROM users WHERE id=$1`, userID).Scan(&balance)
	return balance, translate(err)
}

// Debit relies on the row lock taken by UPDATE: a concurrent debit waits and
// re-evaluates the balance predicate against the committed value.
func (r *ledgerRepository) Debit(ctx context.Context, userID, amount int64) (int64, error) {
	const query = `
        UPDATE users SET credit_balance = credit_balance - $2, updated_at = NOW()
        WHERE id = $1 AND credit_balance >= $2
        RETURNING credit_balance`
	var balance int64
	err := translate(r.db.QueryRow(ctx, query, userID, amount).Scan(&balance))
	if errors.Is(err, ErrNotFound) {
		if _, balErr := r.Balance(ctx, userID); balErr != nil {
			return 0, balErr
		}
		return 0, ErrInsufficientBalance
	}
	return balance, err
}

// Credit refuses amounts that would overflow bigint instead of letting the
// addition raise a numeric error.
func (r *ledgerRepository) Credit(ctx context.Context, userID, amount int64) (int64, error) {
	const query = `
        UPDATE users SET credit_balance = credit_balance + $2, updated_at = NOW()
        WHERE id = $1 AND credit_balance <= $3 - $2
        RETURNING credit_balance`
	var balance int64
	err := translate(r.db.QueryRow(ctx, query, userID, amount, int64(math.MaxInt64)).Scan(&balance))
	if errors.Is(err, ErrNotFound) {
		if _, balErr := r.Balance(ctx, userID); balErr != nil {
			return 0, balErr
		}
		return 0, ErrBalanceOverflow
	}
	return balance, err
}

func (r *ledgerRepository) AddEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	const query = `
        INSERT INTO ledger_entries (user_id, delta, balance_after, reason, reference_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		entry.UserID,
		entry.Delta,
		entry.BalanceAfter,
		entry.Reason,
		entry.ReferenceID,
	).Scan(&entry.ID, &entry.CreatedAt)
	return translate(err)
}

func (r *ledgerRepository) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, error) {
	limit, offset = NormalizePage(limit, offset, 50, 200)
	const query = `
        SELECT id, user_id, delta, balance_after, reason, reference_id, created_at
        FROM ledger_entries WHERE user_id=$1
        ORDER BY id DESC LIMIT $2 OFFSET $3`
	var entries []domain.LedgerEntry
	if err := pgxscan.Select(ctx, r.db, &entries, query, userID, limit, offset); err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
