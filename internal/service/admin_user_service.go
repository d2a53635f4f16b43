package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/repository"
)

type adminStore interface {
	GetByID(ctx context.Context, id int) (*model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
	Update(ctx context.Context, a *model.Admin) error
	Delete(ctx context.Context, id int) error
}

type roleLookup interface {
	GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error)
}

// AdminUserService manages coordinator accounts.
type AdminUserService struct {
	admins adminStore
	roles  roleLookup
	auth   *AuthService
	log    zerolog.Logger
}

// NewAdminUserService creates a new AdminUserService.
func NewAdminUserService(admins *repository.AdminRepository, roles *repository.RoleRepository, auth *AuthService, log zerolog.Logger) *AdminUserService {
	return newAdminUserService(admins, roles, auth, log)
}

func newAdminUserService(admins adminStore, roles roleLookup, auth *AuthService, log zerolog.Logger) *AdminUserService {
	return &AdminUserService{
		admins: admins,
		roles:  roles,
		auth:   auth,
		log:    log.With().Str("component", "admin_user_service").Logger(),
	}
}

// ListAdmins retrieves every admin, optionally filtered by role.
func (s *AdminUserService) ListAdmins(ctx context.Context, roleID int) ([]model.Admin, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, err
	}
	if roleID <= 0 {
		return admins, nil
	}
	filtered := []model.Admin{}
	for _, a := range admins {
		if a.RoleID == roleID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// CreateAdmin creates a new admin user.
func (s *AdminUserService) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (*model.Admin, error) {
	if err := s.checkRole(ctx, req.RoleID); err != nil {
		return nil, err
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	a := &model.Admin{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		RoleID:       req.RoleID,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateAdmin
		}
		return nil, err
	}
	s.log.Info().Int("admin_id", a.ID).Int("role_id", a.RoleID).Msg("Admin created")
	return a, nil
}

// UpdateAdmin updates an admin; an empty password keeps the current one.
func (s *AdminUserService) UpdateAdmin(ctx context.Context, id int, req model.UpdateAdminRequest) (*model.Admin, error) {
	if err := s.checkRole(ctx, req.RoleID); err != nil {
		return nil, err
	}

	a := &model.Admin{
		ID:     id,
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Name:   strings.TrimSpace(req.Name),
		RoleID: req.RoleID,
	}
	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}

	if err := s.admins.Update(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrDuplicateAdmin
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return s.admins.GetByID(ctx, id)
}

// DeleteAdmin removes an admin. Admins cannot delete themselves.
func (s *AdminUserService) DeleteAdmin(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrActionForbidden
	}
	err := s.admins.Delete(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrAdminNotFound
	case errors.Is(err, repository.ErrReferenced):
		return ErrInUse
	}
	return err
}

func (s *AdminUserService) checkRole(ctx context.Context, roleID int) error {
	if _, err := s.roles.GetRoleByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	return nil
}
