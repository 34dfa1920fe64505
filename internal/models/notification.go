package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type NotificationType string

const (
	NotificationAssigned  NotificationType = "assigned"
	NotificationUpdated   NotificationType = "updated"
	NotificationCompleted NotificationType = "completed"
)

// Notification is the payload pushed over a live connection or rendered into
// an email. It is constructed per event and not persisted.
type Notification struct {
	Type      NotificationType `json:"type"`
	TaskID    uuid.UUID        `json:"task_id"`
	TaskTitle string           `json:"task_title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
