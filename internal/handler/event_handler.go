package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/middleware"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// EventHandler handles admin event management.
type EventHandler struct {
	eventService         *service.EventService
	participationService *service.ParticipationService
	log                  zerolog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *service.EventService, participationService *service.ParticipationService, log zerolog.Logger) *EventHandler {
	return &EventHandler{
		eventService:         eventService,
		participationService: participationService,
		log:                  log.With().Str("component", "event_handler").Logger(),
	}
}

// ListEvents godoc
// GET /api/v1/admin/events
// Filters: status (comma separated), type, search.
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, perPage := pageQuery(c)

	filter := model.EventFilter{Search: strings.TrimSpace(c.Query("search"))}
	if s := c.Query("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			filter.Statuses = append(filter.Statuses, model.EventStatus(strings.TrimSpace(part)))
		}
	}
	if t := c.Query("type"); t != "" {
		et := model.EventType(t)
		filter.Type = &et
	}

	events, pagination, err := h.eventService.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"events": events}, pagination)
}

// GetEvent godoc
// GET /api/v1/admin/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"event": event})
}

// CreateEvent godoc
// POST /api/v1/admin/events
// Creates a draft event organised by the caller.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	event, err := h.eventService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"event": event})
}

// UpdateEvent godoc
// PUT /api/v1/admin/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	event, err := h.eventService.Update(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"event": event})
}

// UpdateEventStatus godoc
// PATCH /api/v1/admin/events/:id/status
// Moves the event through draft → published → ongoing → completed, or cancels it.
func (h *EventHandler) UpdateEventStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateEventStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	event, err := h.eventService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"event": event})
}

// DeleteEvent godoc
// DELETE /api/v1/admin/events/:id
// Only draft or cancelled events can be deleted.
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "event deleted successfully"})
}

// ListParticipations godoc
// GET /api/v1/admin/events/:id/participations
// Optional status filter.
func (h *EventHandler) ListParticipations(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var status *model.ParticipationStatus
	if s := c.Query("status"); s != "" {
		st := model.ParticipationStatus(s)
		status = &st
	}

	items, err := h.participationService.ListByEvent(c.Request.Context(), id, status)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participations": items})
}
