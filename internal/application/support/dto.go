package support

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/google/uuid"
)

// OpenTicketRequest opens a ticket with the first message
type OpenTicketRequest struct {
	Subject  string     `json:"subject" binding:"required,max=200"`
	Category string     `json:"category" binding:"omitempty,oneof=general order shipping returns product other"`
	Body     string     `json:"body" binding:"required,max=10000"`
	OrderID  *uuid.UUID `json:"order_id"`
}

// PostMessageRequest adds a reply to a ticket
type PostMessageRequest struct {
	Body        string   `json:"body" binding:"max=10000"`
	Internal    bool     `json:"internal"`
	Attachments []string `json:"attachments" binding:"max=5,dive,max=512"`
}

// AttachmentUploadRequest asks for a presigned upload URL
type AttachmentUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// AttachmentUploadResponse carries the key to reference in a message
type AttachmentUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AssignRequest hands a ticket to a staff member
type AssignRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" binding:"required"`
}

// PriorityRequest changes a ticket's priority
type PriorityRequest struct {
	Priority string `json:"priority" binding:"required,oneof=low normal high urgent"`
}

// ListTicketsQuery holds ticket list parameters. Status, category, priority
// and assignee filters only apply to the admin list.
type ListTicketsQuery struct {
	Search     string     `form:"search"`
	Status     string     `form:"status"`
	Category   string     `form:"category"`
	Priority   string     `form:"priority"`
	AssigneeID *uuid.UUID `form:"assignee_id"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// AttachmentResponse is a downloadable attachment
type AttachmentResponse struct {
	Key         string     `json:"key"`
	FileName    string     `json:"file_name"`
	DownloadURL string     `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// MessageResponse represents a ticket message in API responses
type MessageResponse struct {
	ID          uuid.UUID            `json:"id"`
	AuthorID    *uuid.UUID           `json:"author_id,omitempty"`
	AuthorRole  string               `json:"author_role"`
	Body        string               `json:"body"`
	Internal    bool                 `json:"internal,omitempty"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// TicketResponse represents a ticket with its visible conversation
type TicketResponse struct {
	ID            uuid.UUID         `json:"id"`
	Number        string            `json:"number"`
	UserID        uuid.UUID         `json:"user_id"`
	Email         string            `json:"email"`
	Subject       string            `json:"subject"`
	Category      string            `json:"category"`
	Priority      string            `json:"priority"`
	Status        string            `json:"status"`
	OrderID       *uuid.UUID        `json:"order_id,omitempty"`
	AssigneeID    *uuid.UUID        `json:"assignee_id,omitempty"`
	Messages      []MessageResponse `json:"messages"`
	LastMessageAt time.Time         `json:"last_message_at"`
	ClosedAt      *time.Time        `json:"closed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TicketSummary is the list representation, without messages
type TicketSummary struct {
	ID            uuid.UUID  `json:"id"`
	Number        string     `json:"number"`
	Email         string     `json:"email"`
	Subject       string     `json:"subject"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	LastMessageAt time.Time  `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toTicketSummary(t *support.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		Number:        t.Number,
		Email:         t.Email,
		Subject:       t.Subject,
		Category:      string(t.Category),
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		AssigneeID:    t.AssigneeID,
		LastMessageAt: t.LastMessageAt,
		CreatedAt:     t.CreatedAt,
	}
}
