package shared

import (
	"context"
	"time"
)

// ObjectStorageService is the port to blob storage for product images and
// ticket attachments. Uploads and downloads go directly between the browser
// and the store through presigned URLs.
type ObjectStorageService interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry. The URL
	// only accepts a body of contentType and, when size is positive, of
	// exactly size bytes.
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, size int64, expiresIn time.Duration) (string, time.Time, error)
	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	// PublicURL returns the unsigned URL for publicly readable keys such as product images
	PublicURL(storageKey string) string
}
