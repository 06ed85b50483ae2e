package support

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllowedAttachmentTypes is the upload whitelist for ticket attachments
var AllowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
}

// AttachmentConfig holds presign expiries and the upload size limit
type AttachmentConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	MaxUploadBytes    int64
}

// DefaultAttachmentConfig returns the default configuration
func DefaultAttachmentConfig() AttachmentConfig {
	return AttachmentConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
		MaxUploadBytes:    10 << 20,
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CreateAttachmentUploadURL returns a presigned PUT URL under
// tickets/{id}/. The returned key is then referenced by PostMessage.
func (s *TicketService) CreateAttachmentUploadURL(ctx context.Context, id uuid.UUID, viewer support.Author, req AttachmentUploadRequest) (*AttachmentUploadResponse, error) {
	t, err := s.findVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if t.Status == support.StatusClosed {
		return nil, shared.NewDomainError("INVALID_STATE", "Ticket is closed")
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !AllowedAttachmentTypes[contentType] {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Content type '%s' is not allowed. Attach an image, PDF or text file.", req.ContentType))
	}
	if req.Size <= 0 {
		return nil, shared.NewMissingFieldError("size")
	}
	if s.attachments.MaxUploadBytes > 0 && req.Size > s.attachments.MaxUploadBytes {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Attachment exceeds the %d MB upload limit", s.attachments.MaxUploadBytes>>20))
	}

	key := attachmentKeyPrefix(t.ID) + uuid.New().String() + "/" + safeFileName(req.FileName)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, req.Size, s.attachments.UploadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to presign attachment upload",
			zap.String("ticket_id", t.ID.String()),
			zap.Error(err))
		return nil, shared.NewUpstreamError("object storage", err)
	}
	return &AttachmentUploadResponse{Key: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// checkAttachments verifies each key belongs to the ticket and was uploaded
func (s *TicketService) checkAttachments(ctx context.Context, ticketID uuid.UUID, keys []string) error {
	prefix := attachmentKeyPrefix(ticketID)
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !strings.HasPrefix(key, prefix) || strings.Contains(key, "..") {
			return shared.NewDomainError("INVALID_INPUT", "Attachment does not belong to this ticket")
		}
		exists, err := s.storage.ObjectExists(ctx, key)
		if err != nil {
			return shared.NewUpstreamError("object storage", err)
		}
		if !exists {
			return shared.NewDomainError("INVALID_STATE", "Attachment upload has not completed")
		}
	}
	return nil
}

// attachmentLinks presigns download URLs. A failed presign still lists the
// attachment so the message renders.
func (s *TicketService) attachmentLinks(ctx context.Context, keys []string) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(keys))
	for _, key := range keys {
		a := AttachmentResponse{Key: key, FileName: path.Base(key)}
		if s.storage != nil {
			url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.attachments.DownloadURLExpiry)
			if err != nil {
				s.logger.Warn("Failed to presign attachment download", zap.String("key", key), zap.Error(err))
			} else {
				a.DownloadURL = url
				a.ExpiresAt = &expiresAt
			}
		}
		out = append(out, a)
	}
	return out
}

func attachmentKeyPrefix(ticketID uuid.UUID) string {
	return "tickets/" + ticketID.String() + "/"
}

func safeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "attachment"
	}
	if len(name) > 100 {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:100-len(ext)] + ext
	}
	return name
}
