package models

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
)

type AuditEntityType string

const (
	EntityTask AuditEntityType = "task"
	EntityUser AuditEntityType = "user"
)

type AuditAction string

const (
	ActionCreated       AuditAction = "created"
	ActionUpdated       AuditAction = "updated"
	ActionDeleted       AuditAction = "deleted"
	ActionAssigned      AuditAction = "assigned"
	ActionStatusChanged AuditAction = "status_changed"
	ActionCompleted     AuditAction = "completed"
)

// AuditLog is append-only: rows are written once by the audit service and
// never updated or deleted by application code.
type AuditLog struct {
	ID         uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	EntityType AuditEntityType `json:"entity_type" gorm:"not null"`
	EntityID   uuid.UUID       `json:"entity_id" gorm:"type:uuid;not null"`
	Action     AuditAction     `json:"action" gorm:"not null"`
	UserID     uuid.UUID       `json:"user_id" gorm:"type:uuid;not null"`
	Details    string          `json:"details" gorm:"type:text"`
	Timestamp  time.Time       `json:"timestamp" gorm:"not null"`
}

// Detail payloads, one shape per action. Stored as JSON in AuditLog.Details.

type CreatedDetails struct {
	Title string `json:"title"`
}

type UpdatedDetails struct {
	ChangedFields []string `json:"changed_fields"`
}

type DeletedDetails struct {
	Title string `json:"title"`
}

type AssignedDetails struct {
	OldAssignee *uuid.UUID `json:"old_assignee"`
	NewAssignee *uuid.UUID `json:"new_assignee"`
}

type StatusChangedDetails struct {
	OldStatus TaskStatus `json:"old_status"`
	NewStatus TaskStatus `json:"new_status"`
}

type CompletedDetails struct {
	Title string `json:"title"`
}

func MarshalDetails(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (l *AuditLog) UnmarshalDetails(dest interface{}) error {
	return json.Unmarshal([]byte(l.Details), dest)
}
