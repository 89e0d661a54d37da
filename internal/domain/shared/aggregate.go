package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// AuditedAggregateRoot extends BaseAggregateRoot with actor attribution and
// reversible soft deletion. Every persisted aggregate embeds it; repositories
// exclude soft-deleted rows from default reads and persist the version counter
// through compare-and-swap updates.
//
// Invariant: DeletedAt is non-nil exactly when IsDeleted is true.
type AuditedAggregateRoot struct {
	BaseAggregateRoot
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
	UpdatedBy *uuid.UUID `gorm:"type:uuid"`
	IsDeleted bool       `gorm:"not null;default:false;index"`
	DeletedAt *time.Time
}

// NewAuditedAggregateRoot creates an audited root attributed to the given
// actor. A nil actor denotes a system action.
func NewAuditedAggregateRoot(actor *uuid.UUID) AuditedAggregateRoot {
	return AuditedAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CreatedBy:         actor,
	}
}

// Touch records the acting principal and refreshes the update timestamp.
// Called by every state-changing operation on the aggregate.
func (a *AuditedAggregateRoot) Touch(actor *uuid.UUID) {
	a.UpdatedBy = actor
	a.UpdatedAt = time.Now()
}

// SoftDelete hides the aggregate from default reads without erasing it.
// Idempotent: deleting an already-deleted aggregate reports false and
// changes nothing.
func (a *AuditedAggregateRoot) SoftDelete(actor *uuid.UUID) bool {
	if a.IsDeleted {
		return false
	}
	now := time.Now()
	a.IsDeleted = true
	a.DeletedAt = &now
	a.Touch(actor)
	return true
}

// Restore reverses a soft delete. Reports false when the aggregate was not
// deleted.
func (a *AuditedAggregateRoot) Restore(actor *uuid.UUID) bool {
	if !a.IsDeleted {
		return false
	}
	a.IsDeleted = false
	a.DeletedAt = nil
	a.Touch(actor)
	return true
}

// GetCreatedBy returns the creating actor, nil for system actions.
func (a *AuditedAggregateRoot) GetCreatedBy() *uuid.UUID {
	return a.CreatedBy
}

// GetUpdatedBy returns the last mutating actor, nil for system actions.
func (a *AuditedAggregateRoot) GetUpdatedBy() *uuid.UUID {
	return a.UpdatedBy
}
