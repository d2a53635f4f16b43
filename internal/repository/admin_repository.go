package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/model"
)

const adminSelect = `SELECT a.id, a.email, a.name, a.password_hash, a.role_id, r.name, a.created_at, a.updated_at
	FROM admins a JOIN roles r ON a.role_id = r.id`

// AdminRepository handles admin data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func scanAdmin(row pgx.Row) (*model.Admin, error) {
	a := &model.Admin{}
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.RoleID, &a.RoleName, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// GetByID retrieves an admin by ID.
func (r *AdminRepository) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx, adminSelect+` WHERE a.id = $1`, id))
}

// GetByEmail retrieves an admin by their unique email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return scanAdmin(r.pool.QueryRow(ctx, adminSelect+` WHERE a.email = $1`, email))
}

// List retrieves all admins ordered by name.
func (r *AdminRepository) List(ctx context.Context) ([]model.Admin, error) {
	rows, err := r.pool.Query(ctx, adminSelect+` ORDER BY a.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []model.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

// Create inserts a new admin.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (email, name, password_hash, role_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash, a.RoleID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

// Update modifies an admin. An empty PasswordHash keeps the current one.
func (r *AdminRepository) Update(ctx context.Context, a *model.Admin) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE admins
		 SET email = $1, name = $2, role_id = $3,
		     password_hash = COALESCE(NULLIF($4, ''), password_hash),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		a.Email, a.Name, a.RoleID, a.PasswordHash, a.ID,
	)
	if pgCode(err) == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an admin. Admins who organised events cannot be removed.
func (r *AdminRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if pgCode(err) == pgForeignKeyViolation {
		return ErrReferenced
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
