package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type RecurringPattern string

const (
	PatternNone    RecurringPattern = "none"
	PatternDaily   RecurringPattern = "daily"
	PatternWeekly  RecurringPattern = "weekly"
	PatternMonthly RecurringPattern = "monthly"
)

type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string       `json:"title" gorm:"not null"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status" gorm:"not null;default:'not_started'"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:'medium'"`
	DueDate     *time.Time   `json:"due_date"`

	CreatedBy  uuid.UUID  `json:"created_by" gorm:"type:uuid;not null"`
	AssignedTo *uuid.UUID `json:"assigned_to" gorm:"type:uuid"`

	IsRecurring      bool             `json:"is_recurring" gorm:"not null;default:false"`
	RecurringPattern RecurringPattern `json:"recurring_pattern" gorm:"not null;default:'none'"`
	RecurringEndDate *time.Time       `json:"recurring_end_date"`
	ParentTaskID     *uuid.UUID       `json:"parent_task_id" gorm:"type:uuid"`

	// Version guards concurrent updates: a write carries the version it read
	// and fails on mismatch.
	Version int64 `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p RecurringPattern) Valid() bool {
	switch p {
	case PatternNone, PatternDaily, PatternWeekly, PatternMonthly:
		return true
	}
	return false
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}
