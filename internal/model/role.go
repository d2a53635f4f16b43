package model

import "time"

// SuperAdminRoleID is seeded by the initial migration and always holds every permission.
const SuperAdminRoleID = 1

// Role represents an RBAC role.
type Role struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleWithPermissions extends Role to include its associated permissions.
type RoleWithPermissions struct {
	*Role
	Permissions []string `json:"permissions"`
}

// SaveRoleRequest creates or replaces a role and its permission set.
type SaveRoleRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Permissions []string `json:"permissions" binding:"dive,required"`
}
