package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

const personaColumns = `id, staff_id, name, bio, is_active, created_at, updated_at`

type personaRepository struct {
	db DBTX
}

// NewPersonaRepository builds repository.
func NewPersonaRepository(db DBTX) PersonaRepository {
	return &personaRepository{db: db}
}

func (r *personaRepository) Create(ctx context.Context, persona *domain.Persona) error {
	const query = `
        INSERT INTO personas (staff_id, name, bio, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		persona.StaffID,
		persona.Name,
		persona.Bio,
		persona.IsActive,
	).Scan(&persona.ID, &persona.CreatedAt, &persona.UpdatedAt)
	return translate(err)
}

func (r *personaRepository) GetByID(ctx context.Context, id int64) (*domain.Persona, error) {
	const query = `SELECT ` + personaColumns + ` FROM personas WHERE id=$1`
	var persona domain.Persona
	if err := pgxscan.Get(ctx, r.db, &persona, query, id); err != nil {
		return nil, translate(err)
	}
	return &persona, nil
}

func (r *personaRepository) Update(ctx context.Context, persona *domain.Persona) error {
	const query = `
        UPDATE personas SET name=$2, bio=$3, is_active=$4, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		persona.ID,
		persona.Name,
		persona.Bio,
		persona.IsActive,
	).Scan(&persona.UpdatedAt)
	return translate(err)
}

func (r *personaRepository) List(ctx context.Context, filter PersonaFilter) ([]domain.Persona, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("staff_id=$%d", len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}

	limit, offset := NormalizePage(filter.Limit, filter.Offset, 20, 100)
	query := fmt.Sprintf(`SELECT %s FROM personas WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		personaColumns, strings.Join(clauses, " AND "), limit, offset)

	var personas []domain.Persona
	if err := pgxscan.Select(ctx, r.db, &personas, query, args...); err != nil {
		return nil, translate(err)
	}
	return personas, nil
}
