package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PhotoStorage stores an object and returns its public URL.
type PhotoStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
}

// storageErrorResponse object storage error body
type storageErrorResponse struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// StorageClient object storage REST client (Supabase-compatible:
// POST /storage/v1/object/{bucket}/{path}).
type StorageClient struct {
	httpClient *resty.Client
	baseURL    string
	bucket     string
	logger     *zap.Logger
}

var _ PhotoStorage = (*StorageClient)(nil)

func NewStorageClient(baseURL, serviceKey, bucket string, logger *zap.Logger) *StorageClient {
	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey)

	return &StorageClient{
		httpClient: client,
		baseURL:    baseURL,
		bucket:     bucket,
		logger:     logger,
	}
}

// Upload puts data at objectPath (overwriting) and returns the public URL.
func (c *StorageClient) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	var apiErr storageErrorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		SetError(&apiErr).
		SetPathParams(map[string]string{"bucket": c.bucket}).
		Post("/storage/v1/object/{bucket}/" + objectPath)
	if err != nil {
		c.logger.Error("Storage upload failed", zap.String("path", objectPath), zap.Error(err))
		return "", fmt.Errorf("failed to call storage API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("Storage API returned error",
			zap.String("path", objectPath),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", apiErr.Message),
		)
		return "", fmt.Errorf("storage API error: %s (status: %d)", apiErr.Message, resp.StatusCode())
	}

	c.logger.Info("Uploaded object to storage",
		zap.String("bucket", c.bucket),
		zap.String("path", objectPath),
		zap.Int("bytes", len(data)),
	)
	return c.PublicURL(objectPath), nil
}

func (c *StorageClient) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath)
}
