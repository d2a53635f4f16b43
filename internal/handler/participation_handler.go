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

// ParticipationHandler handles registrations, evidence and reports.
type ParticipationHandler struct {
	participationService *service.ParticipationService
	reportService        *service.ReportService
	maxUploadBytes       int64
	log                  zerolog.Logger
}

// NewParticipationHandler creates a new ParticipationHandler.
func NewParticipationHandler(
	participationService *service.ParticipationService,
	reportService *service.ReportService,
	maxUploadBytes int64,
	log zerolog.Logger,
) *ParticipationHandler {
	return &ParticipationHandler{
		participationService: participationService,
		reportService:        reportService,
		maxUploadBytes:       maxUploadBytes,
		log:                  log.With().Str("component", "participation_handler").Logger(),
	}
}

// ─── Student ────────────────────────────────────────────────────────────

// Register godoc
// POST /api/v1/student/events/:id/register
// Refused with 403 when attendance is below 75% or not recorded.
func (h *ParticipationHandler) Register(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	p, err := h.participationService.Register(c.Request.Context(), claims.UserID, eventID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"participation": p})
}

// ListMine godoc
// GET /api/v1/student/participations
func (h *ParticipationHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)

	items, err := h.participationService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participations": items})
}

// GetMine godoc
// GET /api/v1/student/participations/:id
func (h *ParticipationHandler) GetMine(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	p, err := h.participationService.GetForStudent(c.Request.Context(), claims.UserID, id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// Cancel godoc
// DELETE /api/v1/student/participations/:id
// Withdraws a pending registration.
func (h *ParticipationHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.participationService.Cancel(c.Request.Context(), claims.UserID, id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "registration cancelled"})
}

// UploadEvidence godoc
// POST /api/v1/student/participations/:id/evidence
// Multipart: file (jpeg, png, webp or pdf), optional caption.
func (h *ParticipationHandler) UploadEvidence(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	data, filename, err := readUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	caption := strings.TrimSpace(c.PostForm("caption"))
	if len(caption) > 500 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"caption": "must be at most 500 characters"})
		return
	}

	ev, err := h.participationService.UploadEvidence(c.Request.Context(), claims.UserID, id, filename, caption, data)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"evidence": ev})
}

// DeleteEvidence godoc
// DELETE /api/v1/student/participations/:id/evidence/:evidence_id
func (h *ParticipationHandler) DeleteEvidence(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	if err := h.participationService.DeleteEvidence(c.Request.Context(), claims.UserID, id, c.Param("evidence_id")); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "evidence deleted"})
}

// GenerateReport godoc
// POST /api/v1/student/participations/:id/report
// Writes an activity report from the student's description. Falls back to a
// template when the AI provider is unavailable.
func (h *ParticipationHandler) GenerateReport(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.GenerateReportRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	claims := middleware.GetClaims(c)

	p, err := h.reportService.GenerateReport(c.Request.Context(), claims.UserID, id, req.Description)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// ─── Admin review ───────────────────────────────────────────────────────

// GetParticipation godoc
// GET /api/v1/admin/participations/:id
func (h *ParticipationHandler) GetParticipation(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.participationService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// Approve godoc
// POST /api/v1/admin/participations/:id/approve
func (h *ParticipationHandler) Approve(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.participationService.Approve(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// Reject godoc
// POST /api/v1/admin/participations/:id/reject
func (h *ParticipationHandler) Reject(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.RejectParticipationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	p, err := h.participationService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// MarkAttended godoc
// POST /api/v1/admin/participations/:id/attended
func (h *ParticipationHandler) MarkAttended(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.participationService.MarkAttended(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}
