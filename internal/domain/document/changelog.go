package document

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeAction names what happened to a document in a change-log entry.
type ChangeAction string

const (
	ChangeCreated         ChangeAction = "created"
	ChangeUpdated         ChangeAction = "updated"
	ChangeStatusChanged   ChangeAction = "status_changed"
	ChangeSent            ChangeAction = "sent"
	ChangeViewed          ChangeAction = "viewed"
	ChangeAccepted        ChangeAction = "accepted"
	ChangeRejected        ChangeAction = "rejected"
	ChangeExpired         ChangeAction = "expired"
	ChangeCancelled       ChangeAction = "cancelled"
	ChangeConverted       ChangeAction = "converted"
	ChangeRevisionCreated ChangeAction = "revision_created"
	ChangeConfirmed       ChangeAction = "confirmed"
	ChangeShipped         ChangeAction = "shipped"
	ChangeDelivered       ChangeAction = "delivered"
	ChangeLineDelivered   ChangeAction = "line_delivered"
	ChangePaymentReceived ChangeAction = "payment_received"
	ChangeRefunded        ChangeAction = "refunded"
	ChangeCompleted       ChangeAction = "completed"
	ChangeDeleted         ChangeAction = "deleted"
	ChangeRestored        ChangeAction = "restored"
)

// ChangeEntry records one change to a document: who did what, and for
// status changes, from and to which state. Entries are written explicitly
// by the workflow methods and persisted in the same transaction as the
// aggregate, never by a side-channel listener.
type ChangeEntry struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	DocumentID   uuid.UUID    `gorm:"type:uuid;not null;index"`
	DocumentType Type         `gorm:"type:varchar(10);not null"`
	Action       ChangeAction `gorm:"type:varchar(30);not null"`
	FromStatus   string       `gorm:"type:varchar(30)"`
	ToStatus     string       `gorm:"type:varchar(30)"`
	ActorID      *uuid.UUID   `gorm:"type:uuid"`
	Note         string       `gorm:"type:text"`
	OccurredAt   time.Time    `gorm:"not null"`
}

// TableName returns the database table name for change entries
func (ChangeEntry) TableName() string {
	return "document_changes"
}

// NewChangeEntry builds a change-log entry stamped with the current time.
func NewChangeEntry(documentType Type, documentID uuid.UUID, action ChangeAction, fromStatus, toStatus string, actor *uuid.UUID, note string) ChangeEntry {
	return ChangeEntry{
		ID:           uuid.New(),
		DocumentID:   documentID,
		DocumentType: documentType,
		Action:       action,
		FromStatus:   fromStatus,
		ToStatus:     toStatus,
		ActorID:      actor,
		Note:         note,
		OccurredAt:   time.Now(),
	}
}

// ChangeLogRepository reads the persisted change history of documents.
// Writing happens inside the document repositories, transactionally with
// the aggregate that produced the entries.
type ChangeLogRepository interface {
	ListForDocument(ctx context.Context, documentType Type, documentID uuid.UUID) ([]ChangeEntry, error)
}
