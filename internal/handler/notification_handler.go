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
)

const defaultNotificationLimit = 50

// NotificationHandler exposes the notification inbox over REST for clients
// that are not holding a socket open.
type NotificationHandler struct {
	notificationService *service.NotificationService
	log                 zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log.With().Str("component", "notification_handler").Logger(),
	}
}

type markReadRequest struct {
	ID *int64 `json:"id"`
}

// List godoc
// GET /api/v1/{student,admin}/notifications?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultNotificationLimit)))
	if err != nil || limit < 1 || limit > 200 {
		limit = defaultNotificationLimit
	}

	items, err := h.notificationService.List(c.Request.Context(), recipientOf(claims), claims.UserID, limit)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"notifications": items})
}

// MarkRead godoc
// POST /api/v1/{student,admin}/notifications/read
// Body {"id": 12} marks one notification; an empty body marks all of them.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req markReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), recipientOf(claims), claims.UserID, req.ID); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "notifications marked as read"})
}

func recipientOf(claims *service.Claims) model.RecipientType {
	if claims.TokenType == service.TokenTypeAdmin {
		return model.RecipientAdmin
	}
	return model.RecipientStudent
}
