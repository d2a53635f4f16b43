package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cloudinary stores files through the Cloudinary REST upload API.
type Cloudinary struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	baseURL   string
	http      *http.Client
	now       func() time.Time
}

// NewCloudinary creates a Cloudinary-backed storage.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) *Cloudinary {
	return &Cloudinary{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		baseURL:   "https://api.cloudinary.com/v1_1",
		http:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

type uploadResult struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
}

type destroyResult struct {
	Result string `json:"result"`
}

// resourceType picks "image" for pictures and "raw" for everything else so
// PDFs are delivered byte for byte.
func resourceType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return "image"
	}
	return "raw"
}

// Upload stores data under folder. The returned ID is "<resource_type>/<public_id>".
func (c *Cloudinary) Upload(ctx context.Context, data []byte, folder, filename string) (Object, error) {
	rt := resourceType(filename)
	publicID := strings.TrimSuffix(filename, path.Ext(filename))
	if rt == "raw" {
		// Raw assets keep their extension in the public id.
		publicID = filename
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.apiKey,
		"public_id": publicID,
		"overwrite": "true",
	}
	if f := path.Join(c.folder, folder); f != "" && f != "." {
		params["folder"] = f
	}
	params["signature"] = c.sign(params)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Object{}, fmt.Errorf("cloudinary: create form file failed: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Object{}, fmt.Errorf("cloudinary: write file failed: %w", err)
	}
	w.Close()

	var result uploadResult
	if err := c.post(ctx, rt+"/upload", w.FormDataContentType(), &buf, &result); err != nil {
		return Object{}, err
	}
	return Object{URL: result.SecureURL, ID: rt + "/" + result.PublicID}, nil
}

// Delete destroys an object previously returned by Upload.
func (c *Cloudinary) Delete(ctx context.Context, id string) error {
	rt, publicID, ok := strings.Cut(id, "/")
	if !ok || (rt != "image" && rt != "raw") {
		rt, publicID = "image", id
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"api_key":   c.apiKey,
		"public_id": publicID,
	}
	params["signature"] = c.sign(params)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	w.Close()

	var result destroyResult
	if err := c.post(ctx, rt+"/destroy", w.FormDataContentType(), &buf, &result); err != nil {
		return err
	}
	if result.Result == "not found" {
		return ErrNotFound
	}
	return nil
}

// Fetch downloads an object by its delivery URL.
func (c *Cloudinary) Fetch(ctx context.Context, url string) ([]byte, error) {
	return download(ctx, c.http, url)
}

func (c *Cloudinary) post(ctx context.Context, endpoint, contentType string, body io.Reader, out interface{}) error {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.cloudName, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("cloudinary: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cloudinary: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("cloudinary: %s failed (%d): %s", endpoint, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cloudinary: decode response failed: %w", err)
	}
	return nil
}

// sign computes the Cloudinary API signature from the given params.
// api_key, file and resource_type are excluded from the signature.
func (c *Cloudinary) sign(params map[string]string) string {
	excludeKeys := map[string]bool{"api_key": true, "file": true, "resource_type": true}

	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if !excludeKeys[k] && v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)

	payload := strings.Join(pairs, "&") + c.apiSecret
	h := sha1.New()
	h.Write([]byte(payload))
	return fmt.Sprintf("%x", h.Sum(nil))
}
