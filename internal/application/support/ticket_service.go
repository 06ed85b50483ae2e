// Package support runs the customer support ticket desk.
package support

import (
	"context"
	"errors"
	"strings"

	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPageSize caps ticket list pages
const MaxPageSize = 100

// TicketService handles support tickets for customers and staff
type TicketService struct {
	ticketRepo     support.Repository
	orderRepo      order.Repository
	storage        shared.ObjectStorageService
	eventPublisher shared.EventPublisher
	attachments    AttachmentConfig
	logger         *zap.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	ticketRepo support.Repository,
	orderRepo order.Repository,
	storage shared.ObjectStorageService,
	logger *zap.Logger,
) *TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		ticketRepo:  ticketRepo,
		orderRepo:   orderRepo,
		storage:     storage,
		attachments: DefaultAttachmentConfig(),
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TicketService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAttachmentConfig overrides the attachment limits
func (s *TicketService) SetAttachmentConfig(cfg AttachmentConfig) {
	if cfg.UploadURLExpiry > 0 {
		s.attachments.UploadURLExpiry = cfg.UploadURLExpiry
	}
	if cfg.DownloadURLExpiry > 0 {
		s.attachments.DownloadURLExpiry = cfg.DownloadURLExpiry
	}
	if cfg.MaxUploadBytes > 0 {
		s.attachments.MaxUploadBytes = cfg.MaxUploadBytes
	}
}

// Open starts a ticket for a signed-in customer. A referenced order must
// belong to that customer.
func (s *TicketService) Open(ctx context.Context, userID uuid.UUID, email string, req OpenTicketRequest) (*TicketResponse, error) {
	if req.OrderID != nil {
		o, err := s.orderRepo.FindByID(ctx, *req.OrderID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if err != nil || !o.IsOwnedBy(&userID, "") {
			return nil, shared.NewDomainError("INVALID_INPUT", "Order not found for this account")
		}
	}

	t, err := support.Open(support.OpenParams{
		UserID:   userID,
		Email:    email,
		Subject:  req.Subject,
		Category: support.Category(req.Category),
		Body:     req.Body,
		OrderID:  req.OrderID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t)

	s.logger.Info("Support ticket opened",
		zap.String("ticket_id", t.ID.String()),
		zap.String("number", t.Number),
		zap.String("category", string(t.Category)))

	viewer := support.Author{ID: userID, Role: support.RoleUser}
	return s.toResponse(ctx, t, viewer), nil
}

// ListMine returns the customer's own tickets
func (s *TicketService) ListMine(ctx context.Context, userID uuid.UUID, q ListTicketsQuery) (shared.Paginated[TicketSummary], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, OrderBy: "last_message_at"}
	filter.Normalize(MaxPageSize)
	filter.Filters["user_id"] = userID
	return s.list(ctx, filter)
}

// AdminList returns all tickets matching the query
func (s *TicketService) AdminList(ctx context.Context, q ListTicketsQuery) (shared.Paginated[TicketSummary], error) {
	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize, Search: strings.TrimSpace(q.Search), OrderBy: "last_message_at"}
	filter.Normalize(MaxPageSize)
	if q.Status != "" {
		if !support.Status(q.Status).IsValid() {
			return shared.Paginated[TicketSummary]{}, shared.NewDomainError("INVALID_INPUT", "Unknown ticket status: "+q.Status)
		}
		filter.Filters["status"] = q.Status
	}
	if q.Category != "" {
		if !support.Category(q.Category).IsValid() {
			return shared.Paginated[TicketSummary]{}, shared.NewDomainError("INVALID_INPUT", "Unknown ticket category: "+q.Category)
		}
		filter.Filters["category"] = q.Category
	}
	if q.Priority != "" {
		if !support.Priority(q.Priority).IsValid() {
			return shared.Paginated[TicketSummary]{}, shared.NewDomainError("INVALID_INPUT", "Unknown ticket priority: "+q.Priority)
		}
		filter.Filters["priority"] = q.Priority
	}
	if q.AssigneeID != nil {
		filter.Filters["assignee_id"] = *q.AssigneeID
	}
	return s.list(ctx, filter)
}

// Get returns a ticket as the viewer may see it
func (s *TicketService) Get(ctx context.Context, id uuid.UUID, viewer support.Author) (*TicketResponse, error) {
	t, err := s.findVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, t, viewer), nil
}

// PostMessage adds a reply. Attachment keys must have been uploaded under
// the ticket's prefix first.
func (s *TicketService) PostMessage(ctx context.Context, id uuid.UUID, author support.Author, req PostMessageRequest) (*TicketResponse, error) {
	t, err := s.findVisible(ctx, id, author)
	if err != nil {
		return nil, err
	}
	if err := s.checkAttachments(ctx, t.ID, req.Attachments); err != nil {
		return nil, err
	}
	if _, err := t.PostMessage(author, req.Body, req.Internal, req.Attachments); err != nil {
		return nil, err
	}
	return s.save(ctx, t, author)
}

// Close ends the conversation. The owner or staff may close.
func (s *TicketService) Close(ctx context.Context, id uuid.UUID, by support.Author) (*TicketResponse, error) {
	return s.mutate(ctx, id, by, func(t *support.Ticket) error {
		return t.Close(by)
	})
}

// Resolve marks the ticket handled
func (s *TicketService) Resolve(ctx context.Context, id uuid.UUID, by support.Author) (*TicketResponse, error) {
	return s.mutate(ctx, id, by, func(t *support.Ticket) error {
		return t.Resolve(by)
	})
}

// Reopen brings a closed or resolved ticket back to open
func (s *TicketService) Reopen(ctx context.Context, id uuid.UUID, by support.Author) (*TicketResponse, error) {
	return s.mutate(ctx, id, by, func(t *support.Ticket) error {
		return t.Reopen(by)
	})
}

// Assign hands the ticket to a staff member
func (s *TicketService) Assign(ctx context.Context, id uuid.UUID, by support.Author, req AssignRequest) (*TicketResponse, error) {
	if !by.IsAdmin() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only admins can assign tickets")
	}
	return s.mutate(ctx, id, by, func(t *support.Ticket) error {
		return t.Assign(req.AssigneeID)
	})
}

// SetPriority changes the ticket priority
func (s *TicketService) SetPriority(ctx context.Context, id uuid.UUID, by support.Author, req PriorityRequest) (*TicketResponse, error) {
	if !by.IsAdmin() {
		return nil, shared.NewDomainError("FORBIDDEN", "Only admins can change ticket priority")
	}
	return s.mutate(ctx, id, by, func(t *support.Ticket) error {
		return t.SetPriority(support.Priority(req.Priority))
	})
}

func (s *TicketService) list(ctx context.Context, filter shared.Filter) (shared.Paginated[TicketSummary], error) {
	tickets, err := s.ticketRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[TicketSummary]{}, err
	}
	total, err := s.ticketRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[TicketSummary]{}, err
	}
	items := make([]TicketSummary, len(tickets))
	for i := range tickets {
		items[i] = toTicketSummary(&tickets[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// findVisible loads a ticket, reporting tickets the viewer may not see as
// not found
func (s *TicketService) findVisible(ctx context.Context, id uuid.UUID, viewer support.Author) (*support.Ticket, error) {
	t, err := s.ticketRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("ticket")
		}
		return nil, err
	}
	if !t.CanView(viewer) {
		return nil, shared.NewNotFoundError("ticket")
	}
	return t, nil
}

func (s *TicketService) mutate(ctx context.Context, id uuid.UUID, by support.Author, fn func(*support.Ticket) error) (*TicketResponse, error) {
	t, err := s.findVisible(ctx, id, by)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	return s.save(ctx, t, by)
}

func (s *TicketService) save(ctx context.Context, t *support.Ticket, viewer support.Author) (*TicketResponse, error) {
	if err := s.ticketRepo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t)
	return s.toResponse(ctx, t, viewer), nil
}

func (s *TicketService) publish(ctx context.Context, t *support.Ticket) {
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, t.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish ticket events",
				zap.String("ticket_id", t.ID.String()),
				zap.Error(err))
		}
	}
	t.ClearDomainEvents()
}

func (s *TicketService) toResponse(ctx context.Context, t *support.Ticket, viewer support.Author) *TicketResponse {
	visible := t.VisibleMessages(viewer)
	messages := make([]MessageResponse, len(visible))
	for i, m := range visible {
		messages[i] = MessageResponse{
			ID:          m.ID,
			AuthorID:    m.AuthorID,
			AuthorRole:  string(m.AuthorRole),
			Body:        m.Body,
			Internal:    m.Internal,
			Attachments: s.attachmentLinks(ctx, m.Attachments),
			CreatedAt:   m.CreatedAt,
		}
	}
	return &TicketResponse{
		ID:            t.ID,
		Number:        t.Number,
		UserID:        t.UserID,
		Email:         t.Email,
		Subject:       t.Subject,
		Category:      string(t.Category),
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		OrderID:       t.OrderID,
		AssigneeID:    t.AssigneeID,
		Messages:      messages,
		LastMessageAt: t.LastMessageAt,
		ClosedAt:      t.ClosedAt,
		CreatedAt:     t.CreatedAt,
	}
}
