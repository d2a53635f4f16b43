package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Local stores files on disk under a directory served at /uploads.
type Local struct {
	dir     string
	baseURL string
	http    *http.Client
}

// NewLocal creates a disk-backed storage. baseURL is the public origin of the API.
func NewLocal(dir, baseURL string) *Local {
	return &Local{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload writes data to <dir>/<folder>/<filename>. The ID is the relative path.
func (l *Local) Upload(_ context.Context, data []byte, folder, filename string) (Object, error) {
	id := path.Join(path.Clean("/"+folder), path.Base(filename))[1:]
	dest, err := l.resolve(id)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("write file: %w", err)
	}
	return Object{URL: l.baseURL + "/uploads/" + id, ID: id}, nil
}

// Delete removes a stored file.
func (l *Local) Delete(_ context.Context, id string) error {
	p, err := l.resolve(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Fetch reads a file this storage served, or downloads any other URL.
func (l *Local) Fetch(ctx context.Context, url string) ([]byte, error) {
	prefix := l.baseURL + "/uploads/"
	if !strings.HasPrefix(url, prefix) {
		return download(ctx, l.http, url)
	}
	p, err := l.resolve(strings.TrimPrefix(url, prefix))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// resolve maps an ID to a path inside dir, refusing traversal.
func (l *Local) resolve(id string) (string, error) {
	clean := path.Clean("/" + id)
	if clean == "/" {
		return "", fmt.Errorf("storage: invalid object id %q", id)
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean[1:])), nil
}
