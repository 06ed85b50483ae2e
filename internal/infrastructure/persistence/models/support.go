package models

import (
	"time"

	"github.com/fruitstand/backend/internal/domain/support"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TicketModel is the persistence model for the Ticket aggregate
type TicketModel struct {
	AggregateModel
	Number        string           `gorm:"type:varchar(20);not null;uniqueIndex"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Email         string           `gorm:"type:varchar(255);not null"`
	Subject       string           `gorm:"type:varchar(200);not null"`
	Category      support.Category `gorm:"type:varchar(20);not null"`
	Priority      support.Priority `gorm:"type:varchar(20);not null"`
	Status        support.Status   `gorm:"type:varchar(20);not null;index"`
	OrderID       *uuid.UUID       `gorm:"type:uuid"`
	AssigneeID    *uuid.UUID       `gorm:"type:uuid;index"`
	LastMessageAt time.Time        `gorm:"not null;index"`
	ClosedAt      *time.Time
	Messages      []TicketMessageModel `gorm:"foreignKey:TicketID"`
}

// TableName returns the table name for GORM
func (TicketModel) TableName() string {
	return "tickets"
}

// TicketMessageModel is one entry in a ticket conversation
type TicketMessageModel struct {
	BaseModel
	TicketID    uuid.UUID                   `gorm:"type:uuid;not null;index"`
	AuthorID    *uuid.UUID                  `gorm:"type:uuid"`
	AuthorRole  support.AuthorRole          `gorm:"type:varchar(10);not null"`
	Body        string                      `gorm:"type:text"`
	Internal    bool                        `gorm:"not null;default:false"`
	Attachments datatypes.JSONSlice[string] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TicketMessageModel) TableName() string {
	return "ticket_messages"
}

// ToDomain converts the persistence model to a domain Ticket
func (m *TicketModel) ToDomain() *support.Ticket {
	t := &support.Ticket{
		BaseAggregateRoot: m.aggregate(),
		Number:            m.Number,
		UserID:            m.UserID,
		Email:             m.Email,
		Subject:           m.Subject,
		Category:          m.Category,
		Priority:          m.Priority,
		Status:            m.Status,
		OrderID:           m.OrderID,
		AssigneeID:        m.AssigneeID,
		LastMessageAt:     m.LastMessageAt,
		ClosedAt:          m.ClosedAt,
		Messages:          make([]support.Message, 0, len(m.Messages)),
	}
	for _, msg := range m.Messages {
		t.Messages = append(t.Messages, msg.ToDomain())
	}
	return t
}

// ToDomain converts the persistence model to a domain Message
func (m *TicketMessageModel) ToDomain() support.Message {
	return support.Message{
		BaseEntity:  m.BaseModel.entity(),
		TicketID:    m.TicketID,
		AuthorID:    m.AuthorID,
		AuthorRole:  m.AuthorRole,
		Body:        m.Body,
		Internal:    m.Internal,
		Attachments: append([]string{}, m.Attachments...),
	}
}

// FromDomain populates the persistence model from a domain Ticket
func (m *TicketModel) FromDomain(t *support.Ticket) {
	m.setAggregate(t.BaseAggregateRoot)
	m.Number = t.Number
	m.UserID = t.UserID
	m.Email = t.Email
	m.Subject = t.Subject
	m.Category = t.Category
	m.Priority = t.Priority
	m.Status = t.Status
	m.OrderID = t.OrderID
	m.AssigneeID = t.AssigneeID
	m.LastMessageAt = t.LastMessageAt
	m.ClosedAt = t.ClosedAt
	m.Messages = make([]TicketMessageModel, 0, len(t.Messages))
	for _, msg := range t.Messages {
		m.Messages = append(m.Messages, TicketMessageModelFromDomain(msg))
	}
}

// TicketMessageModelFromDomain creates a persistence model from a domain Message
func TicketMessageModelFromDomain(msg support.Message) TicketMessageModel {
	mm := TicketMessageModel{
		TicketID:    msg.TicketID,
		AuthorID:    msg.AuthorID,
		AuthorRole:  msg.AuthorRole,
		Body:        msg.Body,
		Internal:    msg.Internal,
		Attachments: datatypes.JSONSlice[string](append([]string{}, msg.Attachments...)),
	}
	mm.setEntity(msg.BaseEntity)
	return mm
}

// TicketModelFromDomain creates a persistence model from a domain Ticket
func TicketModelFromDomain(t *support.Ticket) *TicketModel {
	m := &TicketModel{}
	m.FromDomain(t)
	return m
}
