package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

type AdminRoleHandler struct {
	service *service.AdminRoleService
	log     zerolog.Logger
}

func NewAdminRoleHandler(service *service.AdminRoleService, log zerolog.Logger) *AdminRoleHandler {
	return &AdminRoleHandler{
		service: service,
		log:     log.With().Str("component", "admin_role_handler").Logger(),
	}
}

// ListRoles gets all roles with their associated permissions.
func (h *AdminRoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"roles": roles})
}

// GetRole gets a role and its permissions by ID.
func (h *AdminRoleHandler) GetRole(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	role, err := h.service.GetRoleByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"role": role})
}

// CreateRole creates a new role with given permissions.
func (h *AdminRoleHandler) CreateRole(c *gin.Context) {
	var req model.SaveRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.CreateRole(c.Request.Context(), req.Name, req.Permissions)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"role": role})
}

// UpdateRole replaces a role's name and permission set. The super admin role is fixed.
func (h *AdminRoleHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	var req model.SaveRoleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	role, err := h.service.UpdateRole(c.Request.Context(), id, req.Name, req.Permissions)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"role": role})
}

// DeleteRole deletes a role that no admin holds.
func (h *AdminRoleHandler) DeleteRole(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRole(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Role deleted successfully"})
}

// GetPermissions lists all available permissions.
func (h *AdminRoleHandler) GetPermissions(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"permissions": h.service.GetAllPermissions()})
}
