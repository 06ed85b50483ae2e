package support

import (
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeTicket is the aggregate type name for ticket events
const AggregateTypeTicket = "Ticket"

const (
	EventTypeTicketOpened  = "TicketOpened"
	EventTypeTicketReplied = "TicketReplied"
	EventTypeTicketClosed  = "TicketClosed"
)

// TicketOpenedEvent is published when a customer opens a ticket
type TicketOpenedEvent struct {
	shared.BaseDomainEvent
	TicketID uuid.UUID `json:"ticket_id"`
	Number   string    `json:"number"`
	UserID   uuid.UUID `json:"user_id"`
	Subject  string    `json:"subject"`
	Category Category  `json:"category"`
}

func NewTicketOpenedEvent(t *Ticket) *TicketOpenedEvent {
	return &TicketOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTicketOpened, AggregateTypeTicket, t.ID),
		TicketID:        t.ID,
		Number:          t.Number,
		UserID:          t.UserID,
		Subject:         t.Subject,
		Category:        t.Category,
	}
}

// TicketRepliedEvent is published when staff posts a public reply
type TicketRepliedEvent struct {
	shared.BaseDomainEvent
	TicketID  uuid.UUID `json:"ticket_id"`
	Number    string    `json:"number"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	MessageID uuid.UUID `json:"message_id"`
	Body      string    `json:"body"`
}

func NewTicketRepliedEvent(t *Ticket, msg *Message) *TicketRepliedEvent {
	return &TicketRepliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTicketReplied, AggregateTypeTicket, t.ID),
		TicketID:        t.ID,
		Number:          t.Number,
		Email:           t.Email,
		Subject:         t.Subject,
		MessageID:       msg.ID,
		Body:            msg.Body,
	}
}

// TicketClosedEvent is published when a ticket is closed
type TicketClosedEvent struct {
	shared.BaseDomainEvent
	TicketID uuid.UUID  `json:"ticket_id"`
	Number   string     `json:"number"`
	ClosedBy uuid.UUID  `json:"closed_by"`
	Role     AuthorRole `json:"role"`
}

func NewTicketClosedEvent(t *Ticket, by Author) *TicketClosedEvent {
	return &TicketClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTicketClosed, AggregateTypeTicket, t.ID),
		TicketID:        t.ID,
		Number:          t.Number,
		ClosedBy:        by.ID,
		Role:            by.Role,
	}
}
