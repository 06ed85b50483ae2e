package handler

import (
	"context"

	supportapp "github.com/fruitstand/backend/internal/application/support"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/fruitstand/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TicketService is the support use-case surface the handler needs
type TicketService interface {
	Open(ctx context.Context, userID uuid.UUID, email string, req supportapp.OpenTicketRequest) (*supportapp.TicketResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID, q supportapp.ListTicketsQuery) (shared.Paginated[supportapp.TicketSummary], error)
	AdminList(ctx context.Context, q supportapp.ListTicketsQuery) (shared.Paginated[supportapp.TicketSummary], error)
	Get(ctx context.Context, id uuid.UUID, viewer support.Author) (*supportapp.TicketResponse, error)
	PostMessage(ctx context.Context, id uuid.UUID, author support.Author, req supportapp.PostMessageRequest) (*supportapp.TicketResponse, error)
	CreateAttachmentUploadURL(ctx context.Context, id uuid.UUID, viewer support.Author, req supportapp.AttachmentUploadRequest) (*supportapp.AttachmentUploadResponse, error)
	Close(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error)
	Resolve(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error)
	Reopen(ctx context.Context, id uuid.UUID, by support.Author) (*supportapp.TicketResponse, error)
	Assign(ctx context.Context, id uuid.UUID, by support.Author, req supportapp.AssignRequest) (*supportapp.TicketResponse, error)
	SetPriority(ctx context.Context, id uuid.UUID, by support.Author, req supportapp.PriorityRequest) (*supportapp.TicketResponse, error)
}

// TicketHandler serves support tickets. The same handler backs the customer
// routes and the /admin routes; staff is set for the latter.
type TicketHandler struct {
	BaseHandler
	tickets TicketService
	staff   bool
}

// NewTicketHandler creates the customer facing ticket handler
func NewTicketHandler(tickets TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// NewAdminTicketHandler creates the staff ticket handler
func NewAdminTicketHandler(tickets TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets, staff: true}
}

func (h *TicketHandler) author(c *gin.Context) (support.Author, bool) {
	userID, ok := h.currentUser(c)
	if !ok {
		return support.Author{}, false
	}
	role := support.RoleUser
	if h.staff {
		role = support.RoleAdmin
	}
	return support.Author{ID: userID, Role: role}, true
}

// Open handles POST /tickets
func (h *TicketHandler) Open(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	var req supportapp.OpenTicketRequest
	if !bindJSON(c, &req) {
		return
	}
	ticket, err := h.tickets.Open(c.Request.Context(), claims.UserID(), claims.Email, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ticket)
}

// List handles GET /tickets and GET /admin/tickets
func (h *TicketHandler) List(c *gin.Context) {
	var q supportapp.ListTicketsQuery
	if !bindQuery(c, &q) {
		return
	}

	var (
		page shared.Paginated[supportapp.TicketSummary]
		err  error
	)
	if h.staff {
		page, err = h.tickets.AdminList(c.Request.Context(), q)
	} else {
		userID, ok := h.currentUser(c)
		if !ok {
			return
		}
		page, err = h.tickets.ListMine(c.Request.Context(), userID, q)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessPage(c, dto.NewPageResponse(page))
}

// Get handles GET /tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	h.act(c, h.tickets.Get)
}

// Close handles POST /tickets/:id/close
func (h *TicketHandler) Close(c *gin.Context) {
	h.act(c, h.tickets.Close)
}

// Resolve handles POST /admin/tickets/:id/resolve
func (h *TicketHandler) Resolve(c *gin.Context) {
	h.act(c, h.tickets.Resolve)
}

// Reopen handles POST /admin/tickets/:id/reopen
func (h *TicketHandler) Reopen(c *gin.Context) {
	h.act(c, h.tickets.Reopen)
}

func (h *TicketHandler) act(c *gin.Context, fn func(context.Context, uuid.UUID, support.Author) (*supportapp.TicketResponse, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	ticket, err := fn(c.Request.Context(), id, author)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ticket)
}

// PostMessage handles POST /tickets/:id/messages
func (h *TicketHandler) PostMessage(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	var req supportapp.PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.staff {
		req.Internal = false
	}
	ticket, err := h.tickets.PostMessage(c.Request.Context(), id, author, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ticket)
}

// AttachmentUploadURL handles POST /tickets/:id/attachments. The client
// uploads to the returned URL, then references the key in a message.
func (h *TicketHandler) AttachmentUploadURL(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	var req supportapp.AttachmentUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	upload, err := h.tickets.CreateAttachmentUploadURL(c.Request.Context(), id, author, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}

// Assign handles POST /admin/tickets/:id/assign
func (h *TicketHandler) Assign(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	var req supportapp.AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	ticket, err := h.tickets.Assign(c.Request.Context(), id, author, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ticket)
}

// SetPriority handles PUT /admin/tickets/:id/priority
func (h *TicketHandler) SetPriority(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	var req supportapp.PriorityRequest
	if !bindJSON(c, &req) {
		return
	}
	ticket, err := h.tickets.SetPriority(c.Request.Context(), id, author, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ticket)
}
