package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:          "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		PresignExpiry:   15 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Bucket = ""
		_, err := NewS3ObjectStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half of a key pair returns error", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.SecretAccessKey = ""
		_, err := NewS3ObjectStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates storage", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", storage.bucket)
		assert.Equal(t, 15*time.Minute, storage.presignExpiration)
	})

	t.Run("default region and presign expiry", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Region = ""
		cfg.PresignExpiry = 0
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", storage.region)
		assert.Equal(t, 15*time.Minute, storage.presignExpiration)
	})

	t.Run("endpoint without scheme gets https", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = "minio.internal:9000"
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://minio.internal:9000", storage.endpoint)
	})
}

func TestS3ObjectStorageOptions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	storage, err := NewS3ObjectStorage(testStorageConfig(), WithLogger(logger), WithPresignExpiration(time.Hour))
	require.NoError(t, err)
	assert.Same(t, logger, storage.logger)
	assert.Equal(t, time.Hour, storage.presignExpiration)
}

func TestS3ObjectStorage_GenerateUploadURL(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty storage key returns error", func(t *testing.T) {
		u, _, err := storage.GenerateUploadURL(ctx, "", "image/jpeg", 1024, time.Minute)
		require.Error(t, err)
		assert.Empty(t, u)
	})

	t.Run("generates presigned PUT URL", func(t *testing.T) {
		u, expiresAt, err := storage.GenerateUploadURL(ctx, "products/p1/photo.jpg", "image/jpeg", 0, 10*time.Minute)
		require.NoError(t, err)

		parsed, err := url.Parse(u)
		require.NoError(t, err)
		assert.Equal(t, "localhost:9000", parsed.Host)
		assert.True(t, strings.HasPrefix(parsed.Path, "/test-bucket/products/p1/photo.jpg"))
		assert.Equal(t, "600", parsed.Query().Get("X-Amz-Expires"))
		assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
		assert.True(t, expiresAt.Before(time.Now().Add(11*time.Minute)))
	})

	t.Run("uses default expiration when not provided", func(t *testing.T) {
		u, _, err := storage.GenerateUploadURL(ctx, "products/p1/photo.jpg", "image/jpeg", 0, 0)
		require.NoError(t, err)
		parsed, err := url.Parse(u)
		require.NoError(t, err)
		assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
	})

	t.Run("signs content type and length", func(t *testing.T) {
		u, _, err := storage.GenerateUploadURL(ctx, "tickets/t1/receipt.pdf", "application/pdf", 2048, time.Minute)
		require.NoError(t, err)
		parsed, err := url.Parse(u)
		require.NoError(t, err)
		signed := strings.Split(parsed.Query().Get("X-Amz-SignedHeaders"), ";")
		assert.Contains(t, signed, "content-length")
		assert.Contains(t, signed, "content-type")
	})
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig())
	require.NoError(t, err)

	u, expiresAt, err := storage.GenerateDownloadURL(context.Background(), "tickets/t1/receipt.pdf", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "localhost:9000/test-bucket/tickets/t1/receipt.pdf")
	assert.True(t, expiresAt.After(time.Now()))

	_, _, err = storage.GenerateDownloadURL(context.Background(), "", 0)
	assert.Error(t, err)
}

func TestS3ObjectStorage_KeyValidation(t *testing.T) {
	storage, err := NewS3ObjectStorage(testStorageConfig())
	require.NoError(t, err)

	assert.Error(t, storage.DeleteObject(context.Background(), ""))
	exists, err := storage.ObjectExists(context.Background(), "")
	assert.Error(t, err)
	assert.False(t, exists)
}

func TestS3ObjectStorage_PublicURL(t *testing.T) {
	t.Run("cdn base url wins", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PublicBaseURL = "https://cdn.fruitstand.shop/"
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.fruitstand.shop/products/p1/a%20b.jpg", storage.PublicURL("products/p1/a b.jpg"))
	})

	t.Run("custom endpoint uses path style", func(t *testing.T) {
		storage, err := NewS3ObjectStorage(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000/test-bucket/products/p1/a.jpg", storage.PublicURL("products/p1/a.jpg"))
	})

	t.Run("aws virtual hosted style", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = ""
		cfg.UsePathStyle = false
		cfg.Region = "us-west-2"
		storage, err := NewS3ObjectStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "https://test-bucket.s3.us-west-2.amazonaws.com/products/p1/a.jpg", storage.PublicURL("products/p1/a.jpg"))
		assert.Empty(t, storage.PublicURL(""))
	})
}
