package repository

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

const invitationColumns = `id, token, email, created_by, expires_at, used_at, used_by, created_at`

type invitationRepository struct {
	db DBTX
}

// NewInvitationRepository constructs repository.
func NewInvitationRepository(db DBTX) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, token *domain.InvitationToken) error {
	const query = `
        INSERT INTO invitation_tokens (token, email, created_by, expires_at, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		token.Token,
		token.Email,
		token.CreatedBy,
		token.ExpiresAt,
		token.CreatedAt,
	).Scan(&token.ID)
	return translate(err)
}

func (r *invitationRepository) GetByToken(ctx context.Context, tokenStr string) (*domain.InvitationToken, error) {
	var token domain.InvitationToken
	if err := pgxscan.Get(ctx, r.db, &token, `SELECT `+invitationColumns+` FROM invitation_tokens WHERE token=$1`, tokenStr); err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// LockByToken serializes registrations racing on one token: a waiter reads
// the row as committed by the winner.
func (r *invitationRepository) LockByToken(ctx context.Context, tokenStr string) (*domain.InvitationToken, error) {
	var token domain.InvitationToken
	if err := pgxscan.Get(ctx, r.db, &token, `SELECT `+invitationColumns+` FROM invitation_tokens WHERE token=$1 FOR UPDATE`, tokenStr); err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// Redeem is a single conditional update; of several concurrent callers only
// the first to take the row lock sees used_at IS NULL.
func (r *invitationRepository) Redeem(ctx context.Context, tokenStr string, userID int64, now time.Time) (*domain.InvitationToken, error) {
	const query = `
        UPDATE invitation_tokens SET used_at=$3, used_by=$2
        WHERE token=$1 AND used_at IS NULL AND expires_at >= $3
        RETURNING ` + invitationColumns
	var token domain.InvitationToken
	if err := pgxscan.Get(ctx, r.db, &token, query, tokenStr, userID, now); err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *invitationRepository) List(ctx context.Context, limit, offset int) ([]domain.InvitationToken, error) {
	limit, offset = NormalizePage(limit, offset, 50, 200)
	const query = `SELECT ` + invitationColumns + ` FROM invitation_tokens
        ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	var tokens []domain.InvitationToken
	if err := pgxscan.Select(ctx, r.db, &tokens, query, limit, offset); err != nil {
		return nil, translate(err)
	}
	return tokens, nil
}
