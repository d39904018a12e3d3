package repository

import (
	"context"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/spec-kit/persona-chat/internal/domain"
)

const staffColumns = `id, email, display_name, password_hash, role, status, created_at, updated_at`

type staffRepository struct {
	db DBTX
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DBTX) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (email, display_name, password_hash, role, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		staff.Email,
		staff.DisplayName,
		staff.PasswordHash,
		staff.Role,
		staff.Status,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
	return translate(err)
}

func (r *staffRepository) GetByID(ctx context.Context, id int64) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := pgxscan.Get(ctx, r.db, &staff, `SELECT `+staffColumns+` FROM staff_members WHERE id=$1`, id); err != nil {
		return nil, translate(err)
	}
	return &staff, nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	var staff domain.StaffMember
	if err := pgxscan.Get(ctx, r.db, &staff, `SELECT `+staffColumns+` FROM staff_members WHERE email=$1`, email); err != nil {
		return nil, translate(err)
	}
	return &staff, nil
}
