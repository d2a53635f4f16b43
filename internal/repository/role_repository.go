package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevahub/sevahub-backend/internal/database"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// RoleRepository handles role and permission data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetPermissionsByRoleID retrieves all permission codes for a given role.
func (r *RoleRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.code
		 FROM permissions p
		 JOIN role_permissions rp ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.code`, roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permissions := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}
	return permissions, rows.Err()
}

// GetRoleByID retrieves a role and its permissions by ID.
func (r *RoleRepository) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role := &model.Role{ID: id}
	err := r.pool.QueryRow(ctx, "SELECT name, created_at FROM roles WHERE id = $1", id).Scan(&role.Name, &role.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	permissions, err := r.GetPermissionsByRoleID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.RoleWithPermissions{
		Role:        role,
		Permissions: permissions,
	}, nil
}

// ListRolesWithPermissions retrieves all roles with their associated permissions.
func (r *RoleRepository) ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, created_at FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var base []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		base = append(base, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Roles are few; one permissions query per role is fine.
	roles := make([]model.RoleWithPermissions, 0, len(base))
	for i := range base {
		permissions, err := r.GetPermissionsByRoleID(ctx, base[i].ID)
		if err != nil {
			return nil, err
		}
		roles = append(roles, model.RoleWithPermissions{Role: &base[i], Permissions: permissions})
	}
	return roles, nil
}

// SaveRole creates (id == 0) or renames a role and replaces its permission
// set in one transaction. It returns the role ID.
func (r *RoleRepository) SaveRole(ctx context.Context, id int, name string, permissionCodes []string) (int, error) {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if id == 0 {
			err = tx.QueryRow(ctx, "INSERT INTO roles (name) VALUES ($1) RETURNING id", name).Scan(&id)
		} else {
			var tag pgconn.CommandTag
			tag, err = tx.Exec(ctx, "UPDATE roles SET name = $1 WHERE id = $2", name, id)
			if err == nil && tag.RowsAffected() == 0 {
				err = ErrNotFound
			}
		}
		if pgCode(err) == pgUniqueViolation {
			return ErrDuplicateRole
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", id); err != nil {
			return err
		}
		if len(permissionCodes) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id)
			 SELECT $1, id FROM permissions WHERE code = ANY($2)`,
			id, permissionCodes)
		return err
	})
	return id, err
}

// DeleteRole removes a role. Roles still assigned to admins cannot be removed.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM roles WHERE id = $1", id)
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

// SyncPermissions upserts every permission code and grants all of them to roleID.
func (r *RoleRepository) SyncPermissions(ctx context.Context, roleID int, codes []string) (int64, error) {
	var granted int64
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO permissions (code) SELECT unnest($1::text[]) ON CONFLICT (code) DO NOTHING`, codes); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id)
			 SELECT $1, id FROM permissions
			 ON CONFLICT DO NOTHING`, roleID)
		granted = tag.RowsAffected()
		return err
	})
	return granted, err
}
