package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   response.ErrCode
}

// Specific errors come first; the taxonomy roots catch the rest.
var serviceErrors = []errorMapping{
	{errFileRequired, http.StatusBadRequest, response.ErrFileRequired},
	{service.ErrNoAttendanceData, http.StatusForbidden, response.ErrNoAttendanceData},
	{service.ErrAlreadyRegistered, http.StatusConflict, response.ErrAlreadyRegistered},
	{service.ErrEventFull, http.StatusConflict, response.ErrEventFull},
	{service.ErrRegistrationClosed, http.StatusConflict, response.ErrRegistrationClosed},
	{service.ErrInvalidTransition, http.StatusConflict, response.ErrInvalidTransition},
	{service.ErrParticipationNotActive, http.StatusConflict, response.ErrParticipationPending},
	{service.ErrTemplateNotConfigured, http.StatusBadRequest, response.ErrTemplateNotConfigured},
	{service.ErrInvalidTemplateFile, http.StatusUnprocessableEntity, response.ErrInvalidTemplate},
	{service.ErrTemplate, http.StatusUnprocessableEntity, response.ErrInvalidTemplate},
	{service.ErrCertificatesAlreadySent, http.StatusConflict, response.ErrCertificatesAlreadySent},
	{service.ErrCertificatesNotSent, http.StatusConflict, response.ErrCertificatesNotSent},
	{service.ErrDispatchInProgress, http.StatusConflict, response.ErrDispatchInProgress},
	{service.ErrNotQualified, http.StatusConflict, response.ErrNotQualified},
	{service.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},
	{service.ErrInUse, http.StatusConflict, response.ErrDependencyExists},
	{service.ErrSystemRole, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrActionForbidden, http.StatusForbidden, response.ErrActionForbidden},
	{service.ErrEventLocked, http.StatusConflict, response.ErrActionForbidden},
	{service.ErrValidation, http.StatusBadRequest, response.ErrValidation},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrConflict, http.StatusConflict, response.ErrConflict},
	{service.ErrState, http.StatusConflict, response.ErrActionForbidden},
	{service.ErrExternalService, http.StatusBadGateway, response.ErrExternalService},
}

// failWithError writes the envelope for a service error. Unknown errors are
// logged and reported as internal.
func failWithError(c *gin.Context, log zerolog.Logger, err error) {
	var notEligible *service.NotEligibleError
	if errors.As(err, &notEligible) {
		response.FailWithFields(c, http.StatusForbidden, response.ErrNotEligible, map[string]string{
			"attendance_percentage": strconv.FormatFloat(notEligible.Percentage, 'f', 2, 64),
			"short_by":              strconv.FormatFloat(notEligible.Eligibility.ShortBy, 'f', 2, 64),
			"threshold":             strconv.FormatFloat(notEligible.Eligibility.Threshold, 'f', 0, 64),
		})
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.target == service.ErrValidation {
				response.FailWithFields(c, m.status, m.code, map[string]string{"detail": err.Error()})
				return
			}
			if m.status >= http.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.FullPath()).Msg("Upstream failure")
			}
			response.Fail(c, m.status, m.code)
			return
		}
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled error")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// parseUUIDParam reads a UUID path parameter, writing INVALID_ID on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam reads an integer path parameter, writing INVALID_ID on failure.
func parseIntParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// pageQuery reads page and per_page query parameters.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}

// readUpload reads a multipart file field up to limit bytes.
func readUpload(c *gin.Context, field string, limit int64) ([]byte, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, "", errFileRequired
	}
	defer file.Close()

	if header.Size > limit {
		return nil, header.Filename, service.ErrFileTooLarge
	}
	data := make([]byte, header.Size)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, header.Filename, fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

var errFileRequired = errors.New("file required")
