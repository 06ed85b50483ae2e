package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllowedImageTypes is the upload whitelist for product images.
// SVG is excluded: it can carry script.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// ImageConfig holds upload limits for product images
type ImageConfig struct {
	UploadURLExpiry time.Duration
	MaxUploadBytes  int64
}

// DefaultImageConfig returns the default configuration
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		UploadURLExpiry: 15 * time.Minute,
		MaxUploadBytes:  10 << 20,
	}
}

// CreateImageUploadURL returns a presigned PUT URL under products/{id}/
func (s *ProductService) CreateImageUploadURL(ctx context.Context, id uuid.UUID, req ImageUploadRequest) (*ImageUploadResponse, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Content type '%s' is not allowed. Upload a JPEG, PNG, GIF, WebP or AVIF image.", req.ContentType))
	}
	if req.Size <= 0 {
		return nil, shared.NewMissingFieldError("size")
	}
	if s.images.MaxUploadBytes > 0 && req.Size > s.images.MaxUploadBytes {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Image exceeds the %d MB upload limit", s.images.MaxUploadBytes>>20))
	}
	if fileExt := strings.ToLower(filepath.Ext(req.FileName)); fileExt == ".jpeg" || fileExt == ext {
		ext = fileExt
	}

	key := imageKeyPrefix(id) + uuid.New().String() + ext
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, req.Size, s.images.UploadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign image upload", zap.String("key", key), zap.Error(err))
		return nil, shared.NewUpstreamError("object storage", err)
	}
	return &ImageUploadResponse{
		Key:       key,
		UploadURL: uploadURL,
		PublicURL: s.storage.PublicURL(key),
		ExpiresAt: expiresAt,
	}, nil
}

// AttachImage adds an uploaded object to the product gallery
func (s *ProductService) AttachImage(ctx context.Context, id uuid.UUID, req AttachImageRequest) (*ProductResponse, error) {
	if !strings.HasPrefix(req.Key, imageKeyPrefix(id)) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Image key does not belong to this product")
	}
	exists, err := s.storage.ObjectExists(ctx, req.Key)
	if err != nil {
		return nil, shared.NewUpstreamError("object storage", err)
	}
	if !exists {
		return nil, shared.NewDomainError("INVALID_STATE", "Image has not been uploaded yet")
	}
	return s.mutate(ctx, id, func(p *catalog.Product) error { return p.AddImage(req.Key, req.Alt) })
}

// RemoveImage detaches an image and deletes the object. A failed delete is
// logged and leaves an orphaned object behind.
func (s *ProductService) RemoveImage(ctx context.Context, id uuid.UUID, req RemoveImageRequest) (*ProductResponse, error) {
	resp, err := s.mutate(ctx, id, func(p *catalog.Product) error { return p.RemoveImage(req.Key) })
	if err != nil {
		return nil, err
	}
	if err := s.storage.DeleteObject(ctx, req.Key); err != nil {
		s.logger.Warn("Failed to delete product image", zap.String("key", req.Key), zap.Error(err))
	}
	return resp, nil
}

func imageKeyPrefix(productID uuid.UUID) string {
	return "products/" + productID.String() + "/"
}
