package service

import (
	"context"
	"errors"

	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

// AdminService handles admin lookups for authentication.
type AdminService struct {
	adminRepo *repository.AdminRepository
	roleRepo  *repository.RoleRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, roleRepo *repository.RoleRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo, roleRepo: roleRepo}
}

// GetByEmail retrieves an admin by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, err := s.adminRepo.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	return a, err
}

// GetByID retrieves an admin by ID.
func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	a, err := s.adminRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAdminNotFound
	}
	return a, err
}

// GetPermissions retrieves permission codes for an admin's role.
func (s *AdminService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
}
