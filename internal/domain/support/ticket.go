package support

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	maxSubjectLength  = 200
	maxBodyLength     = 10000
	maxAttachments    = 5
	ticketNumberChars = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

// Status is the lifecycle state of a ticket
type Status string

const (
	StatusOpen     Status = "open"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// CanTransitionTo checks if the ticket can move from s to target
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusOpen:
		return target == StatusPending || target == StatusResolved || target == StatusClosed
	case StatusPending:
		return target == StatusOpen || target == StatusResolved || target == StatusClosed
	case StatusResolved:
		return target == StatusOpen || target == StatusPending || target == StatusClosed
	case StatusClosed:
		return target == StatusOpen
	}
	return false
}

// Category groups tickets by topic
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryOrder    Category = "order"
	CategoryShipping Category = "shipping"
	CategoryReturns  Category = "returns"
	CategoryProduct  Category = "product"
	CategoryOther    Category = "other"
)

// IsValid checks if the category is a known value
func (c Category) IsValid() bool {
	switch c {
	case CategoryGeneral, CategoryOrder, CategoryShipping, CategoryReturns, CategoryProduct, CategoryOther:
		return true
	}
	return false
}

// Priority orders the admin queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is a known value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AuthorRole tags who wrote a message
type AuthorRole string

const (
	RoleUser   AuthorRole = "user"
	RoleAdmin  AuthorRole = "admin"
	RoleSystem AuthorRole = "system"
)

// Author identifies the actor performing a ticket operation
type Author struct {
	ID   uuid.UUID
	Role AuthorRole
}

// IsAdmin reports whether the author acts as staff
func (a Author) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Message is one entry in a ticket conversation
type Message struct {
	shared.BaseEntity
	TicketID    uuid.UUID
	AuthorID    *uuid.UUID
	AuthorRole  AuthorRole
	Body        string
	Internal    bool
	Attachments []string
}

// Ticket is a customer support conversation
type Ticket struct {
	shared.BaseAggregateRoot
	Number        string
	UserID        uuid.UUID
	Email         string
	Subject       string
	Category      Category
	Priority      Priority
	Status        Status
	OrderID       *uuid.UUID
	AssigneeID    *uuid.UUID
	Messages      []Message
	LastMessageAt time.Time
	ClosedAt      *time.Time
}

// OpenParams holds the customer's first message
type OpenParams struct {
	UserID      uuid.UUID
	Email       string
	Subject     string
	Category    Category
	Body        string
	OrderID     *uuid.UUID
	Attachments []string
}

// Open starts a ticket with the customer's first message
func Open(p OpenParams) (*Ticket, error) {
	if p.UserID == uuid.Nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "A signed-in user is required")
	}
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return nil, shared.NewMissingFieldError("subject")
	}
	if len(subject) > maxSubjectLength {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Subject cannot exceed %d characters", maxSubjectLength))
	}
	if strings.TrimSpace(p.Body) == "" {
		return nil, shared.NewMissingFieldError("body")
	}
	category := p.Category
	if category == "" {
		category = CategoryGeneral
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid ticket category")
	}

	t := &Ticket{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            GenerateNumber(),
		UserID:            p.UserID,
		Email:             strings.ToLower(strings.TrimSpace(p.Email)),
		Subject:           subject,
		Category:          category,
		Priority:          PriorityNormal,
		Status:            StatusOpen,
		OrderID:           p.OrderID,
	}
	if _, err := t.appendMessage(Author{ID: p.UserID, Role: RoleUser}, p.Body, false, p.Attachments); err != nil {
		return nil, err
	}
	t.AddDomainEvent(NewTicketOpenedEvent(t))
	return t, nil
}

// PostMessage adds a reply. A user reply reopens a pending or resolved ticket;
// a public admin reply on an open or resolved ticket puts it in pending until
// the customer answers.
func (t *Ticket) PostMessage(author Author, body string, internal bool, attachments []string) (*Message, error) {
	if t.Status == StatusClosed {
		return nil, shared.NewDomainError("INVALID_STATE", "Ticket is closed")
	}
	switch author.Role {
	case RoleUser:
		if author.ID != t.UserID {
			return nil, shared.NewDomainError("FORBIDDEN", "You cannot reply to this ticket")
		}
		if internal {
			return nil, shared.NewDomainError("FORBIDDEN", "Only admins can post internal notes")
		}
	case RoleAdmin:
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid author role")
	}

	msg, err := t.appendMessage(author, body, internal, attachments)
	if err != nil {
		return nil, err
	}

	switch {
	case author.Role == RoleUser && (t.Status == StatusPending || t.Status == StatusResolved):
		t.changeStatus(StatusOpen)
	case author.Role == RoleAdmin && !internal:
		if t.Status == StatusOpen || t.Status == StatusResolved {
			t.changeStatus(StatusPending)
		}
		t.AddDomainEvent(NewTicketRepliedEvent(t, msg))
	}
	return msg, nil
}

// Resolve marks the issue handled. Admin only.
func (t *Ticket) Resolve(by Author) error {
	if !by.IsAdmin() {
		return shared.NewDomainError("FORBIDDEN", "Only admins can resolve tickets")
	}
	return t.transition(StatusResolved)
}

// Close ends the conversation. Admins or the ticket owner may close.
func (t *Ticket) Close(by Author) error {
	if !by.IsAdmin() && by.ID != t.UserID {
		return shared.NewDomainError("FORBIDDEN", "You cannot close this ticket")
	}
	if err := t.transition(StatusClosed); err != nil {
		return err
	}
	now := time.Now()
	t.ClosedAt = &now
	t.AddDomainEvent(NewTicketClosedEvent(t, by))
	return nil
}

// Reopen brings a closed or resolved ticket back to open. Admin only.
func (t *Ticket) Reopen(by Author) error {
	if !by.IsAdmin() {
		return shared.NewDomainError("FORBIDDEN", "Only admins can reopen tickets")
	}
	if t.Status != StatusClosed && t.Status != StatusResolved {
		return shared.NewDomainError("INVALID_STATE", "Only closed or resolved tickets can be reopened")
	}
	if err := t.transition(StatusOpen); err != nil {
		return err
	}
	t.ClosedAt = nil
	return nil
}

// Assign sets the staff member handling the ticket
func (t *Ticket) Assign(adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return shared.NewMissingFieldError("assignee_id")
	}
	if t.AssigneeID != nil && *t.AssigneeID == adminID {
		return nil
	}
	t.AssigneeID = &adminID
	t.addSystemMessage("Ticket assigned")
	t.touch()
	return nil
}

// SetPriority changes the queue priority
func (t *Ticket) SetPriority(p Priority) error {
	if !p.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Invalid ticket priority")
	}
	if t.Priority == p {
		return nil
	}
	old := t.Priority
	t.Priority = p
	t.addSystemMessage(fmt.Sprintf("Priority changed from %s to %s", old, p))
	t.touch()
	return nil
}

// CanView reports whether a user may read the ticket
func (t *Ticket) CanView(viewer Author) bool {
	return viewer.IsAdmin() || viewer.ID == t.UserID
}

// VisibleMessages returns the conversation as the viewer may see it.
// Internal notes are hidden from customers.
func (t *Ticket) VisibleMessages(viewer Author) []Message {
	if viewer.IsAdmin() {
		return t.Messages
	}
	out := make([]Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if !m.Internal {
			out = append(out, m)
		}
	}
	return out
}

func (t *Ticket) appendMessage(author Author, body string, internal bool, attachments []string) (*Message, error) {
	body = strings.TrimSpace(body)
	keys := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if a = strings.TrimSpace(a); a != "" {
			keys = append(keys, a)
		}
	}
	if body == "" && len(keys) == 0 {
		return nil, shared.NewMissingFieldError("body")
	}
	if len(body) > maxBodyLength {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Message cannot exceed %d characters", maxBodyLength))
	}
	if len(keys) > maxAttachments {
		return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("A message can have at most %d attachments", maxAttachments))
	}

	authorID := author.ID
	msg := Message{
		BaseEntity:  shared.NewBaseEntity(),
		TicketID:    t.ID,
		AuthorID:    &authorID,
		AuthorRole:  author.Role,
		Body:        body,
		Internal:    internal,
		Attachments: keys,
	}
	t.Messages = append(t.Messages, msg)
	t.LastMessageAt = msg.CreatedAt
	t.touch()
	return &t.Messages[len(t.Messages)-1], nil
}

func (t *Ticket) addSystemMessage(body string) {
	msg := Message{
		BaseEntity: shared.NewBaseEntity(),
		TicketID:   t.ID,
		AuthorRole: RoleSystem,
		Body:       body,
	}
	t.Messages = append(t.Messages, msg)
	t.LastMessageAt = msg.CreatedAt
}

func (t *Ticket) transition(target Status) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot change ticket status from %s to %s", t.Status, target))
	}
	t.changeStatus(target)
	return nil
}

func (t *Ticket) changeStatus(target Status) {
	old := t.Status
	t.Status = target
	t.addSystemMessage(fmt.Sprintf("Status changed from %s to %s", old, target))
	t.touch()
}

func (t *Ticket) touch() {
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// GenerateNumber returns a short customer-facing ticket reference such as T-8KQ2XM4P
func GenerateNumber() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = ticketNumberChars[int(b)%len(ticketNumberChars)]
	}
	return "T-" + string(out)
}
