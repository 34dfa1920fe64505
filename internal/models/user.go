package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID       uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Username string    `json:"username" gorm:"unique;not null"`
	Email    string    `json:"email" gorm:"unique;not null"`
	Password string    `json:"-" gorm:"not null"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" gorm:"not null;default:'user'"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	CreatedTasks  []Task `json:"created_tasks,omitempty" gorm:"foreignKey:CreatedBy"`
	AssignedTasks []Task `json:"assigned_tasks,omitempty" gorm:"foreignKey:AssignedTo"`

	Preferences *NotificationPreference `json:"preferences,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) DisplayName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// NotificationPreference holds one user's delivery opt-ins, one flag per
// channel and one per event type. A user without a row gets the defaults
// from DefaultNotificationPreference.
type NotificationPreference struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`

	EmailEnabled bool `json:"email_enabled" gorm:"not null;default:true"`
	PushEnabled  bool `json:"push_enabled" gorm:"not null;default:true"`

	OnAssigned  bool `json:"on_assigned" gorm:"not null;default:true"`
	OnUpdated   bool `json:"on_updated" gorm:"not null;default:true"`
	OnCompleted bool `json:"on_completed" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultNotificationPreference(userID uuid.UUID) NotificationPreference {
	return NotificationPreference{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		EmailEnabled: true,
		PushEnabled:  true,
		OnAssigned:   true,
		OnUpdated:    true,
		OnCompleted:  true,
	}
}

func (p *NotificationPreference) AllowsEmail(event NotificationType) bool {
	return p.EmailEnabled && p.allowsEvent(event)
}

func (p *NotificationPreference) AllowsPush(event NotificationType) bool {
	return p.PushEnabled && p.allowsEvent(event)
}

func (p *NotificationPreference) allowsEvent(event NotificationType) bool {
	switch event {
	case NotificationAssigned:
		return p.OnAssigned
	case NotificationUpdated:
		return p.OnUpdated
	case NotificationCompleted:
		return p.OnCompleted
	}
	return false
}
