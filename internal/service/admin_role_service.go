package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

type roleStore interface {
	GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error)
	ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error)
	SaveRole(ctx context.Context, id int, name string, permissionCodes []string) (int, error)
	DeleteRole(ctx context.Context, id int) error
}

// AdminRoleService handles business logic for admin roles.
type AdminRoleService struct {
	roleRepo roleStore
}

// NewAdminRoleService creates a new AdminRoleService.
func NewAdminRoleService(roleRepo *repository.RoleRepository) *AdminRoleService {
	return &AdminRoleService{roleRepo: roleRepo}
}

// ListRoles retrieves all roles with their permissions.
func (s *AdminRoleService) ListRoles(ctx context.Context) ([]model.RoleWithPermissions, error) {
	return s.roleRepo.ListRolesWithPermissions(ctx)
}

// GetRoleByID retrieves a specific role and its permissions.
func (s *AdminRoleService) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role, err := s.roleRepo.GetRoleByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoleNotFound
	}
	return role, err
}

// CreateRole creates a new role and assigns its permissions.
func (s *AdminRoleService) CreateRole(ctx context.Context, name string, permissions []string) (*model.RoleWithPermissions, error) {
	return s.save(ctx, 0, name, permissions)
}

// UpdateRole renames a role and replaces its permissions.
func (s *AdminRoleService) UpdateRole(ctx context.Context, id int, name string, permissions []string) (*model.RoleWithPermissions, error) {
	if id == model.SuperAdminRoleID {
		return nil, ErrSystemRole
	}
	return s.save(ctx, id, name, permissions)
}

func (s *AdminRoleService) save(ctx context.Context, id int, name string, permissions []string) (*model.RoleWithPermissions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name cannot be empty", ErrValidation)
	}
	if err := validatePermissions(permissions); err != nil {
		return nil, err
	}

	id, err := s.roleRepo.SaveRole(ctx, id, name, permissions)
	switch {
	case errors.Is(err, repository.ErrDuplicateRole):
		return nil, ErrDuplicateRole
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrRoleNotFound
	case err != nil:
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// DeleteRole deletes a role that no admin holds.
func (s *AdminRoleService) DeleteRole(ctx context.Context, id int) error {
	if id == model.SuperAdminRoleID {
		return ErrSystemRole
	}
	err := s.roleRepo.DeleteRole(ctx, id)
	switch {
	case errors.Is(err, repository.ErrReferenced):
		return ErrInUse
	case errors.Is(err, repository.ErrNotFound):
		return ErrRoleNotFound
	}
	return err
}

// GetAllPermissions retrieves all available system permission codes.
func (s *AdminRoleService) GetAllPermissions() []string {
	return permissionCodes()
}

func permissionCodes() []string {
	perms := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		perms[i] = string(p)
	}
	return perms
}

func validatePermissions(codes []string) error {
	known := make(map[string]bool, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		known[string(p)] = true
	}
	for _, c := range codes {
		if !known[c] {
			return fmt.Errorf("%w: unknown permission %q", ErrValidation, c)
		}
	}
	return nil
}
