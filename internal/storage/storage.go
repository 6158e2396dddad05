// Package storage uploads comment screenshots to the external object store
// and returns their public URLs. The core never reads objects back; a URL is
// the only thing it keeps.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markloop/backend/internal/apperr"
	"github.com/markloop/backend/internal/config"
)

// Store uploads binary objects and returns their public URLs.
type Store interface {
	// Upload stores the object and returns the URL it is served from.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// HTTPStore implements Store against a bucket-per-path object store
// (Supabase storage, MinIO and S3-compatible gateways all accept this shape).
type HTTPStore struct {
	baseURL    string
	bucket     string
	logger     *zap.Logger
	httpClient *http.Client
}

// NewHTTPStore creates a Store backed by the configured object store.
func NewHTTPStore(cfg *config.Config, logger *zap.Logger) *HTTPStore {
	return &HTTPStore{
		baseURL: cfg.StorageURL,
		bucket:  cfg.StorageBucket,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload stores the object under a generated name and returns its public URL.
func (s *HTTPStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	objectPath := path.Join(s.bucket, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()))
	target := s.baseURL + "/" + objectPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("path", objectPath), zap.Error(err))
		return "", fmt.Errorf("object store unreachable: %v: %w", err, apperr.ErrUpload)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("Object store rejected upload",
			zap.String("path", objectPath),
			zap.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("object store returned %d: %w", resp.StatusCode, apperr.ErrUpload)
	}

	s.logger.Info("Uploaded object", zap.String("path", objectPath))
	return target, nil
}
