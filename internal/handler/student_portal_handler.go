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
)

// StudentPortalHandler serves the student's own views: eligibility,
// attendance and the published event catalogue.
type StudentPortalHandler struct {
	studentService    *service.StudentService
	attendanceService *service.AttendanceService
	eventService      *service.EventService
	log               zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	studentService *service.StudentService,
	attendanceService *service.AttendanceService,
	eventService *service.EventService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		studentService:    studentService,
		attendanceService: attendanceService,
		eventService:      eventService,
		log:               log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// GetEligibility godoc
// GET /api/v1/student/eligibility
func (h *StudentPortalHandler) GetEligibility(c *gin.Context) {
	claims := middleware.GetClaims(c)

	eligibility, err := h.studentService.Eligibility(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, eligibility)
}

// GetAttendance godoc
// GET /api/v1/student/attendance
func (h *StudentPortalHandler) GetAttendance(c *gin.Context) {
	claims := middleware.GetClaims(c)

	history, err := h.attendanceService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": history})
}

// ListEvents godoc
// GET /api/v1/student/events
// Lists events open to students (published or ongoing).
func (h *StudentPortalHandler) ListEvents(c *gin.Context) {
	page, perPage := pageQuery(c)
	filter := model.EventFilter{
		Statuses: []model.EventStatus{model.EventStatusPublished, model.EventStatusOngoing},
		Search:   strings.TrimSpace(c.Query("search")),
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
// GET /api/v1/student/events/:id
// Drafts are hidden from students.
func (h *StudentPortalHandler) GetEvent(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if event.Status == model.EventStatusDraft {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"event": event})
}
