package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/response"
	"github.com/sevahub/sevahub-backend/internal/service"
)

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	mediaService   *service.MediaService
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService *service.MediaService, maxUploadBytes int64, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService:   mediaService,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "media_handler").Logger(),
	}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload
// Uploads an image (event banner, email artwork) and returns its URL.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	data, _, err := readUpload(c, "file", h.maxUploadBytes)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	media, err := h.mediaService.SaveUpload(c.Request.Context(), "media", data, service.ImageMIMETypes)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": media.URL, "media": media})
}
