package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// AdminUserHandler manages coordinator accounts.
type AdminUserHandler struct {
	service *service.AdminUserService
	log     zerolog.Logger
}

func NewAdminUserHandler(service *service.AdminUserService, log zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		log:     log.With().Str("component", "admin_user_handler").Logger(),
	}
}

// ListAdmins godoc
// GET /api/v1/admin/admins?role_id=2
func (h *AdminUserHandler) ListAdmins(c *gin.Context) {
	roleID, _ := strconv.Atoi(c.Query("role_id"))

	admins, err := h.service.ListAdmins(c.Request.Context(), roleID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"admins": admins})
}

// CreateAdmin godoc
// POST /api/v1/admin/admins
func (h *AdminUserHandler) CreateAdmin(c *gin.Context) {
	var req model.CreateAdminRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.service.CreateAdmin(c.Request.Context(), req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"admin": admin})
}

// UpdateAdmin godoc
// PUT /api/v1/admin/admins/:id
// An empty password keeps the current one.
func (h *AdminUserHandler) UpdateAdmin(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateAdminRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.service.UpdateAdmin(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"admin": admin})
}

// DeleteAdmin godoc
// DELETE /api/v1/admin/admins/:id
func (h *AdminUserHandler) DeleteAdmin(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.service.DeleteAdmin(c.Request.Context(), claims.UserID, id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Admin deleted successfully"})
}
