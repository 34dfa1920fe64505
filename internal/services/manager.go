package services

import (
	"errors"
	"log"
	"time"

	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// TaskManagerService is the single entry point the HTTP layer uses for task
// mutations. It sequences the store, the recurrence generator, the audit log
// and the notification fan-out, and decides which side effects fire based on
// what changed. Only validation, not-found and version-conflict errors
// surface to callers; audit and notification failures are logged and
// swallowed so the task mutation stands on its own.
type TaskManagerService interface {
	CreateTask(db *gorm.DB, input CreateTaskInput, actingUserID uuid.UUID) (models.Task, error)
	UpdateTask(db *gorm.DB, id uuid.UUID, patch UpdateTaskPatch, actingUserID uuid.UUID) (models.Task, error)
	DeleteTask(db *gorm.DB, id uuid.UUID, actingUserID uuid.UUID) (bool, error)
	ProcessRecurringTasks(db *gorm.DB) (int, error)
}

type TaskManagerImpl struct {
	tasks         TaskService
	recurrence    RecurrenceService
	audit         AuditService
	notifications NotificationService
	users         UserService
}

func NewTaskManager(tasks TaskService, recurrence RecurrenceService, audit AuditService, notifications NotificationService, users UserService) *TaskManagerImpl {
	return &TaskManagerImpl{
		tasks:         tasks,
		recurrence:    recurrence,
		audit:         audit,
		notifications: notifications,
		users:         users,
	}
}

func (m *TaskManagerImpl) CreateTask(db *gorm.DB, input CreateTaskInput, actingUserID uuid.UUID) (models.Task, error) {
	input.CreatedBy = actingUserID

	task, err := m.tasks.CreateTask(db, input)
	if err != nil {
		return models.Task{}, err
	}

	if task.IsRecurring && task.RecurringPattern != models.PatternNone {
		if _, err := m.recurrence.GenerateInstances(db, task); err != nil {
			log.Printf("task manager: instance generation for %s failed: %v", task.ID, err)
		}
	}

	if err := m.audit.LogCreated(db, task, actingUserID); err != nil {
		log.Printf("task manager: audit write for create of %s failed: %v", task.ID, err)
	}

	if task.AssignedTo != nil && *task.AssignedTo != actingUserID {
		m.notifications.NotifyAssigned(db, task, *task.AssignedTo, m.actorName(db, actingUserID))
	}

	m.notifications.ScheduleDueReminder(db, task)

	return task, nil
}

func (m *TaskManagerImpl) UpdateTask(db *gorm.DB, id uuid.UUID, patch UpdateTaskPatch, actingUserID uuid.UUID) (models.Task, error) {
	before, err := m.tasks.GetTaskByID(db, id)
	if err != nil {
		return models.Task{}, err
	}

	after, err := m.tasks.UpdateTask(db, id, patch)
	if err != nil {
		return models.Task{}, err
	}

	becameRecurring := after.IsRecurring && after.RecurringPattern != models.PatternNone &&
		(!before.IsRecurring || before.RecurringPattern == models.PatternNone)
	if becameRecurring {
		if _, err := m.recurrence.GenerateInstances(db, after); err != nil {
			log.Printf("task manager: instance generation for %s failed: %v", after.ID, err)
		}
	}

	assignmentChanged := !uuidPtrEqual(before.AssignedTo, after.AssignedTo)
	statusChanged := before.Status != after.Status
	completed := statusChanged && after.Status == models.StatusCompleted
	actorName := m.actorName(db, actingUserID)

	// Reassignment and still-assigned notifications are mutually exclusive:
	// a reassignment notifies only the incoming assignee.
	if assignmentChanged {
		if after.AssignedTo != nil && *after.AssignedTo != actingUserID {
			m.notifications.NotifyAssigned(db, after, *after.AssignedTo, actorName)
		}
	} else if after.AssignedTo != nil {
		m.notifications.NotifyUpdated(db, after, *after.AssignedTo, actorName)
	}

	if completed && after.CreatedBy != actingUserID {
		m.notifications.NotifyCompleted(db, after, after.CreatedBy, actorName)
	}

	if assignmentChanged {
		if err := m.audit.LogAssigned(db, after, actingUserID, before.AssignedTo, after.AssignedTo); err != nil {
			log.Printf("task manager: audit write for assignment of %s failed: %v", id, err)
		}
	}
	if statusChanged {
		if err := m.audit.LogStatusChanged(db, after, actingUserID, before.Status, after.Status); err != nil {
			log.Printf("task manager: audit write for status change of %s failed: %v", id, err)
		}
	}
	if completed {
		if err := m.audit.LogCompleted(db, after, actingUserID); err != nil {
			log.Printf("task manager: audit write for completion of %s failed: %v", id, err)
		}
	}
	if changed := diffFields(before, after); len(changed) > 0 {
		if err := m.audit.LogUpdated(db, after, actingUserID, changed); err != nil {
			log.Printf("task manager: audit write for update of %s failed: %v", id, err)
		}
	}

	return after, nil
}

// DeleteTask writes the audit entry first so the record carries the task's
// pre-deletion title, then hard-deletes the row.
func (m *TaskManagerImpl) DeleteTask(db *gorm.DB, id uuid.UUID, actingUserID uuid.UUID) (bool, error) {
	task, err := m.tasks.GetTaskByID(db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := m.audit.LogDeleted(db, id, task.Title, actingUserID); err != nil {
		log.Printf("task manager: audit write for delete of %s failed: %v", id, err)
	}

	return m.tasks.DeleteTask(db, id)
}

func (m *TaskManagerImpl) ProcessRecurringTasks(db *gorm.DB) (int, error) {
	return m.recurrence.ProcessRecurringTasks(db)
}

func (m *TaskManagerImpl) actorName(db *gorm.DB, actingUserID uuid.UUID) string {
	user, err := m.users.GetUserByID(db, actingUserID)
	if err != nil {
		return "Someone"
	}
	return user.DisplayName()
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func diffFields(before, after models.Task) []string {
	var changed []string
	if before.Title != after.Title {
		changed = append(changed, "title")
	}
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	if before.Status != after.Status {
		changed = append(changed, "status")
	}
	if before.Priority != after.Priority {
		changed = append(changed, "priority")
	}
	if !timePtrEqual(before.DueDate, after.DueDate) {
		changed = append(changed, "due_date")
	}
	if !uuidPtrEqual(before.AssignedTo, after.AssignedTo) {
		changed = append(changed, "assigned_to")
	}
	if before.IsRecurring != after.IsRecurring {
		changed = append(changed, "is_recurring")
	}
	if before.RecurringPattern != after.RecurringPattern {
		changed = append(changed, "recurring_pattern")
	}
	if !timePtrEqual(before.RecurringEndDate, after.RecurringEndDate) {
		changed = append(changed, "recurring_end_date")
	}
	return changed
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
