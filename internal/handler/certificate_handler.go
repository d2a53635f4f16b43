package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
	"github.com/sevahub/sevahub-backend/internal/model"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
	"github.com/sevahub/sevahub-backend/internal/validator"
)

const progressKeepAlive = 30 * time.Second

// CertificateHandler handles certificate layout, preview and dispatch.
type CertificateHandler struct {
	rdb                *redis.Client
	certificateService *service.CertificateService
	dispatcher         *service.CertificateDispatcher
	maxUploadBytes     int64
	log                zerolog.Logger
}

// NewCertificateHandler creates a new CertificateHandler.
func NewCertificateHandler(
	rdb *redis.Client,
	certificateService *service.CertificateService,
	dispatcher *service.CertificateDispatcher,
	maxUploadBytes int64,
	log zerolog.Logger,
) *CertificateHandler {
	return &CertificateHandler{
		rdb:                rdb,
		certificateService: certificateService,
		dispatcher:         dispatcher,
		maxUploadBytes:     maxUploadBytes,
		log:                log.With().Str("component", "certificate_handler").Logger(),
	}
}

// ─── Layout ─────────────────────────────────────────────────────────────

// GetConfig godoc
// GET /api/v1/admin/events/:id/certificate
func (h *CertificateHandler) GetConfig(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	cfg, err := h.certificateService.GetConfig(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cfg})
}

// SaveConfig godoc
// PUT /api/v1/admin/events/:id/certificate
// Replaces the whole field layout and the auto-send flag.
func (h *CertificateHandler) SaveConfig(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.SaveCertificateConfigRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := h.certificateService.SaveConfig(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cfg})
}

// PlaceField godoc
// POST /api/v1/admin/events/:id/certificate/fields
// Places one field from a click on the zoomed template preview.
func (h *CertificateHandler) PlaceField(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.PlaceFieldRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := h.certificateService.PlaceField(c.Request.Context(), id, req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cfg})
}

// ClearField godoc
// DELETE /api/v1/admin/events/:id/certificate/fields/:field
func (h *CertificateHandler) ClearField(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	cfg, err := h.certificateService.ClearField(c.Request.Context(), id, c.Param("field"))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"certificate": cfg})
}

// UploadTemplate godoc
// POST /api/v1/admin/events/:id/certificate/template
// Multipart: file (single-page PDF).
func (h *CertificateHandler) UploadTemplate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	data, filename, err := readUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	upload, err := h.certificateService.UploadTemplate(c.Request.Context(), id, filename, data)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"certificate": upload.Config,
		"page_size":   upload.Size,
	})
}

// RemoveTemplate godoc
// DELETE /api/v1/admin/events/:id/certificate/template
func (h *CertificateHandler) RemoveTemplate(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.certificateService.RemoveTemplate(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "template removed"})
}

// Preview godoc
// GET /api/v1/admin/events/:id/certificate/preview
// Renders the template with sample values and returns the PDF.
func (h *CertificateHandler) Preview(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	pdf, err := h.certificateService.Preview(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="certificate-preview.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ─── Dispatch ───────────────────────────────────────────────────────────

// Dispatch godoc
// POST /api/v1/admin/events/:id/certificates/send
// Sends every qualifying participant their certificate and returns the
// summary. With ?async=true the run is queued for the certificate worker and
// progress is followed over the SSE stream instead.
func (h *CertificateHandler) Dispatch(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if c.Query("async") == "true" {
		if err := h.rdb.RPush(c.Request.Context(), config.WorkerKey.CertificateDispatchQueue, id.String()).Err(); err != nil {
			failWithError(c, h.log, err)
			return
		}
		response.Success(c, http.StatusAccepted, gin.H{"event_id": id, "queued": true})
		return
	}

	summary, err := h.dispatcher.Dispatch(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// RetryFailed godoc
// POST /api/v1/admin/events/:id/certificates/retry
// Re-sends only the deliveries that failed in an earlier run.
func (h *CertificateHandler) RetryFailed(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.dispatcher.RetryFailed(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// IssueSingle godoc
// POST /api/v1/admin/participations/:id/certificate
// Generates one participant's certificate without emailing it.
func (h *CertificateHandler) IssueSingle(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.dispatcher.IssueSingle(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participation": p})
}

// DispatchProgressSSE godoc
// GET /api/v1/admin/events/:id/certificates/progress
// Streams one message per delivered certificate until the run reports done.
func (h *CertificateHandler) DispatchProgressSSE(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.CertificateProgressChannel(id.String()))
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAlive := time.NewTicker(progressKeepAlive)
	defer keepAlive.Stop()

	log := h.log.With().Str("event_id", id.String()).Logger()
	log.Info().Msg("Admin attached to certificate progress SSE")

	pingPayload, _ := json.Marshal(map[string]string{"status": "ping"})
	writeEvent(c, pingPayload)

	for {
		select {
		case <-reqCtx.Done():
			log.Info().Msg("Admin disconnected from certificate progress SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(c, []byte(msg.Payload))

			var progress service.DispatchProgress
			if json.Unmarshal([]byte(msg.Payload), &progress) == nil && progress.Status == service.ProgressDone {
				return
			}

		case <-keepAlive.C:
			writeEvent(c, pingPayload)
		}
	}
}

func writeEvent(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
