package repository

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

const messageColumns = `id, session_id, sender_kind, sender_id, title, content, image_url, credit_cost, idempotency_key, created_at`

type messageRepository struct {
	db DBTX
}

// NewMessageRepository builds repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (session_id, sender_kind, sender_id, title, content, image_url, credit_cost, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		msg.SessionID,
		msg.SenderKind,
		msg.SenderID,
		msg.Title,
		msg.Content,
		msg.ImageURL,
		msg.CreditCost,
		msg.IdempotencyKey,
		msg.CreatedAt,
	).Scan(&msg.ID)
	return translate(err)
}

func (r *messageRepository) ListAfter(ctx context.Context, sessionID, afterID int64) ([]domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM messages
        WHERE session_id=$1 AND id>$2 ORDER BY id ASC`
	var result []domain.Message
	if err := pgxscan.Select(ctx, r.db, &result, query, sessionID, afterID); err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (r *messageRepository) GetByIdempotencyKey(ctx context.Context, sessionID int64, kind domain.SenderKind, key string) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM messages
        WHERE session_id=$1 AND sender_kind=$2 AND idempotency_key=$3`
	var msg domain.Message
	if err := pgxscan.Get(ctx, r.db, &msg, query, sessionID, kind, key); err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}
