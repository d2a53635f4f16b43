package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/storage"
)

// ImageMIMETypes are accepted for general admin media.
var ImageMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// EvidenceMIMETypes are accepted as proof of participation.
var EvidenceMIMETypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// StoredMedia is an uploaded file after validation.
type StoredMedia struct {
	storage.Object
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// MediaService validates uploads by sniffed content type and size and
// stores them under a random name.
type MediaService struct {
	storage  storage.Storage
	maxBytes int64
	log      zerolog.Logger
}

// NewMediaService creates a new MediaService.
func NewMediaService(store storage.Storage, maxBytes int64, log zerolog.Logger) *MediaService {
	return &MediaService{storage: store, maxBytes: maxBytes, log: log.With().Str("component", "media_service").Logger()}
}

// SaveUpload checks data against the allowed types and stores it in folder.
// The content type is sniffed from the bytes; the client's header is ignored.
func (s *MediaService) SaveUpload(ctx context.Context, folder string, data []byte, allowed map[string]string) (*StoredMedia, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, len(data), s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowed[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(allowed), ", "))
	}

	obj, err := s.storage.Upload(ctx, data, folder, uuid.New().String()+ext)
	if err != nil {
		return nil, external("store upload", err)
	}
	return &StoredMedia{Object: obj, ContentType: contentType, Size: len(data)}, nil
}

// Remove deletes a stored object. A missing object is not an error.
func (s *MediaService) Remove(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return external("delete upload", err)
	}
	return nil
}

func allowedTypes(allowed map[string]string) []string {
	types := make([]string, 0, len(allowed))
	for t := range allowed {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
