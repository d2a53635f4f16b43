package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// AttendanceHandler imports monthly attendance.
type AttendanceHandler struct {
	attendanceService *service.AttendanceService
	maxUploadBytes    int64
	log               zerolog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *service.AttendanceService, maxUploadBytes int64, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		maxUploadBytes:    maxUploadBytes,
		log:               log.With().Str("component", "attendance_handler").Logger(),
	}
}

// ImportAttendance godoc
// POST /api/v1/admin/attendance/import
// Applies JSON attendance rows. Bad rows are reported, never fatal.
func (h *AttendanceHandler) ImportAttendance(c *gin.Context) {
	var req model.ImportAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result := h.attendanceService.Import(c.Request.Context(), req.AttendancePeriod, req.Rows)
	response.Success(c, http.StatusOK, result)
}

// ImportAttendanceSheet godoc
// POST /api/v1/admin/attendance/import/sheet
// Accepts a .xlsx or .csv file plus optional month/year form fields.
func (h *AttendanceHandler) ImportAttendanceSheet(c *gin.Context) {
	period := model.AttendancePeriod{}
	for name, dst := range map[string]*int{"month": &period.Month, "year": &period.Year} {
		if v := c.PostForm(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{name: "must be a number"})
				return
			}
			*dst = n
		}
	}
	if period.Month != 0 && (period.Month < 1 || period.Month > 12) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"month": "must be between 1 and 12"})
		return
	}

	data, filename, err := readUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	rows, err := service.ParseAttendanceSheet(filename, bytes.NewReader(data))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	if err := service.LimitRows(rows); err != nil {
		failWithError(c, h.log, err)
		return
	}

	result := h.attendanceService.Import(c.Request.Context(), period, rows)
	h.log.Info().
		Str("file", filename).
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("Attendance sheet imported")
	response.Success(c, http.StatusOK, result)
}
