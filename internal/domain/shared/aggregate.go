package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps of every stored entity
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns an entity with a fresh id, created now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised
// since the aggregate was loaded. Services publish the events after a
// successful save and then clear them.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	events  []DomainEvent
	// version last read from or written to storage, 0 until then
	stored int
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// RestoreAggregateRoot rebuilds a root read from storage at version
func RestoreAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity, Version: version, stored: version}
}

func (a *BaseAggregateRoot) GetVersion() int   { return a.Version }
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// StoredVersion is the version a save must find in storage; 0 means the
// aggregate has never been saved
func (a *BaseAggregateRoot) StoredVersion() int { return a.stored }

// MarkPersisted records a successful save of the current version
func (a *BaseAggregateRoot) MarkPersisted() { a.stored = a.Version }

// AddDomainEvent queues an event for publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.events }
func (a *BaseAggregateRoot) ClearDomainEvents()             { a.events = nil }
