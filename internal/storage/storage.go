// Package storage persists uploaded and generated files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sevahub/sevahub-backend/internal/config"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object is a durable reference to a stored file.
type Object struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Storage accepts bytes under a folder and returns a durable URL plus an
// opaque identifier usable for deletion.
type Storage interface {
	Upload(ctx context.Context, data []byte, folder, filename string) (Object, error)
	Delete(ctx context.Context, id string) error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// New builds the storage driver selected by configuration.
func New(cfg *config.Config, log zerolog.Logger) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverCloudinary:
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, errors.New("storage: cloudinary credentials are not configured")
		}
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("Using Cloudinary storage")
		return NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder), nil
	case config.StorageDriverLocal, "":
		log.Info().Str("dir", cfg.UploadDir).Msg("Using local disk storage")
		return NewLocal(cfg.UploadDir, cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.StorageDriver)
	}
}

// download GETs a remote object, capped at maxFetchBytes.
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage: fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}

const maxFetchBytes = 32 << 20
