package repository

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

type footprintRepository struct {
	db DBTX
}

// NewFootprintRepository constructs repository.
func NewFootprintRepository(db DBTX) FootprintRepository {
	return &footprintRepository{db: db}
}

func (r *footprintRepository) Upsert(ctx context.Context, userID, personaID int64, at time.Time) (*domain.Footprint, error) {
	const query = `
        INSERT INTO footprints (user_id, persona_id, created_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, persona_id)
        DO UPDATE SET created_at = GREATEST(footprints.created_at, EXCLUDED.created_at)
        RETURNING id, user_id, persona_id, created_at`
	var fp domain.Footprint
	if err := pgxscan.Get(ctx, r.db, &fp, query, userID, personaID, at); err != nil {
		return nil, translate(err)
	}
	return &fp, nil
}

func (r *footprintRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Footprint, error) {
	return r.list(ctx, "user_id", userID, limit, offset)
}

func (r *footprintRepository) ListByPersona(ctx context.Context, personaID int64, limit, offset int) ([]domain.Footprint, error) {
	return r.list(ctx, "persona_id", personaID, limit, offset)
}

func (r *footprintRepository) list(ctx context.Context, column string, id int64, limit, offset int) ([]domain.Footprint, error) {
	limit, offset = NormalizePage(limit, offset, 20, 100)
	query := `SELECT id, user_id, persona_id, created_at FROM footprints
        WHERE ` + column + `=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	var result []domain.Footprint
	if err := pgxscan.Select(ctx, r.db, &result, query, id, limit, offset); err != nil {
		return nil, translate(err)
	}
	return result, nil
}
