package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

const sessionColumns = `id, user_id, persona_id, status, created_at, updated_at`

type sessionRepository struct {
	db DBTX
}

// NewSessionRepository instantiates repository.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepository{db: db}
}

// CreateActive leans on the partial unique index over active pairs, so two
// racing inserts cannot both succeed.
func (r *sessionRepository) CreateActive(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (user_id, persona_id, status, created_at, updated_at)
        VALUES ($1,$2,'active',$3,$3)
        ON CONFLICT (user_id, persona_id) WHERE status = 'active' DO NOTHING
        RETURNING id, status, created_at, updated_at`
	err := translate(r.db.QueryRow(ctx, query,
		session.UserID,
		session.PersonaID,
		session.CreatedAt,
	).Scan(&session.ID, &session.Status, &session.CreatedAt, &session.UpdatedAt))
	if err == ErrNotFound {
		return ErrConflict
	}
	return err
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	return r.fetchSingle(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
}

func (r *sessionRepository) LockByID(ctx context.Context, id int64) (*domain.Session, error) {
	return r.fetchSingle(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1 FOR UPDATE`, id)
}

func (r *sessionRepository) GetActiveByPair(ctx context.Context, userID, personaID int64) (*domain.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions
        WHERE user_id=$1 AND persona_id=$2 AND status='active'`
	return r.fetchSingle(ctx, query, userID, personaID)
}

func (r *sessionRepository) Close(ctx context.Context, id int64, at time.Time) (*domain.Session, error) {
	const query = `
        UPDATE sessions SET status='closed', updated_at=$2
        WHERE id=$1 AND status='active'
        RETURNING ` + sessionColumns
	return r.fetchSingle(ctx, query, id, at)
}

func (r *sessionRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE sessions SET updated_at=$2 WHERE id=$1`, id, at)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sessionRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	var session domain.Session
	if err := pgxscan.Get(ctx, r.db, &session, query, args...); err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]domain.Session, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.OwnerStaffID != nil {
		args = append(args, *filter.OwnerStaffID)
		clauses = append(clauses, fmt.Sprintf("persona_id IN (SELECT id FROM personas WHERE staff_id=$%d)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset, 20, 100)
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY updated_at DESC, id DESC LIMIT %d OFFSET %d`,
		sessionColumns, strings.Join(clauses, " AND "), limit, offset)

	var sessions []domain.Session
	if err := pgxscan.Select(ctx, r.db, &sessions, query, args...); err != nil {
		return nil, translate(err)
	}
	return sessions, nil
}
