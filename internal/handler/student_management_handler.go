package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

// StudentManagementHandler handles admin-facing student management.
type StudentManagementHandler struct {
	studentService    *service.StudentService
	attendanceService *service.AttendanceService
	log               zerolog.Logger
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(
	studentService *service.StudentService,
	attendanceService *service.AttendanceService,
	log zerolog.Logger,
) *StudentManagementHandler {
	return &StudentManagementHandler{
		studentService:    studentService,
		attendanceService: attendanceService,
		log:               log.With().Str("component", "student_management_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/admin/students
// Lists students with pagination, filtered by department, year, eligible and search.
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	page, perPage := pageQuery(c)

	filter := model.StudentFilter{Search: strings.TrimSpace(c.Query("search"))}
	if d := strings.ToUpper(c.Query("department")); d != "" {
		if !validator.ValidDepartment(d) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"department": "must be one of CSE, ECE, EEE, MECH, CIVIL, IT"})
			return
		}
		dep := model.Department(d)
		filter.Department = &dep
	}
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1 || year > 4 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"year": "must be between 1 and 4"})
			return
		}
		filter.Year = &year
	}
	if e := c.Query("eligible"); e != "" {
		eligible, err := strconv.ParseBool(e)
		if err != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"eligible": "must be true or false"})
			return
		}
		filter.Eligible = &eligible
	}

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), filter, page, perPage)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
// Returns a student together with their eligibility and attendance history.
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	eligibility, err := h.studentService.Eligibility(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}
	history, err := h.attendanceService.History(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"student":     student,
		"eligibility": eligibility,
		"attendance":  history,
	})
}

// CreateStudent godoc
// POST /api/v1/admin/students
// Creates a new student.
func (h *StudentManagementHandler) CreateStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/admin/students/:id
// Updates a student's details, optionally their password, and optionally
// overrides their attendance percentage.
func (h *StudentManagementHandler) UpdateStudent(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/admin/students/:id
// Deletes a student by ID.
func (h *StudentManagementHandler) DeleteStudent(c *gin.Context) {
	id, ok := parseIntParam(c, "id")
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "student deleted successfully"})
}
