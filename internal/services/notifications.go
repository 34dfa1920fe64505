package services

import (
	"fmt"
	"log"
	"time"

	"tasktracker/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// ConnectionRegistry is the live-push port, backed by the websocket hub in
// production and by fakes in tests.
type ConnectionRegistry interface {
	IsConnected(userID uuid.UUID) bool
	Push(userID uuid.UUID, message interface{}) error
}

// EmailQueue hands a rendered email off for asynchronous delivery.
type EmailQueue interface {
	EnqueueEmail(to, subject, body string) error
}

// ReminderQueue schedules a due-soon reminder for later delivery.
type ReminderQueue interface {
	EnqueueReminderAt(to, taskTitle string, dueDate, processAt time.Time) error
}

// NotificationService fans a task event out to one user over the channels
// that user has enabled. Delivery is best-effort and at-most-once per
// channel: failures are logged and swallowed, and never reach the caller or
// roll back the task mutation that triggered them.
type NotificationService interface {
	NotifyAssigned(db *gorm.DB, task models.Task, assigneeID uuid.UUID, assignerName string)
	NotifyUpdated(db *gorm.DB, task models.Task, userID uuid.UUID, updaterName string)
	NotifyCompleted(db *gorm.DB, task models.Task, userID uuid.UUID, completerName string)
	ScheduleDueReminder(db *gorm.DB, task models.Task)
}

type NotificationServiceImpl struct {
	userService UserService
	registry    ConnectionRegistry
	emailQueue  EmailQueue
	reminders   ReminderQueue
}

func NewNotificationService(userService UserService, registry ConnectionRegistry, emailQueue EmailQueue, reminders ReminderQueue) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		userService: userService,
		registry:    registry,
		emailQueue:  emailQueue,
		reminders:   reminders,
	}
}

func (s *NotificationServiceImpl) NotifyAssigned(db *gorm.DB, task models.Task, assigneeID uuid.UUID, assignerName string) {
	message := fmt.Sprintf("%s assigned you a new task: %s", assignerName, task.Title)
	s.deliver(db, task, assigneeID, models.NotificationAssigned, message)
}

func (s *NotificationServiceImpl) NotifyUpdated(db *gorm.DB, task models.Task, userID uuid.UUID, updaterName string) {
	message := fmt.Sprintf("%s updated the task: %s", updaterName, task.Title)
	s.deliver(db, task, userID, models.NotificationUpdated, message)
}

func (s *NotificationServiceImpl) NotifyCompleted(db *gorm.DB, task models.Task, userID uuid.UUID, completerName string) {
	message := fmt.Sprintf("%s completed the task: %s", completerName, task.Title)
	s.deliver(db, task, userID, models.NotificationCompleted, message)
}

// ScheduleDueReminder queues a reminder email for a day before the task's
// due date, addressed to the assignee (or the creator when unassigned).
// Like the rest of the emitter it is best-effort: failures are logged and
// swallowed.
func (s *NotificationServiceImpl) ScheduleDueReminder(db *gorm.DB, task models.Task) {
	if task.DueDate == nil {
		return
	}
	processAt := task.DueDate.Add(-24 * time.Hour)
	if processAt.Before(time.Now()) {
		return
	}

	recipientID := task.CreatedBy
	if task.AssignedTo != nil {
		recipientID = *task.AssignedTo
	}

	user, err := s.userService.GetUserByID(db, recipientID)
	if err != nil {
		log.Printf("notifications: reminder recipient lookup failed for %s: %v", recipientID, err)
		return
	}
	if user.Email == "" {
		return
	}

	if err := s.reminders.EnqueueReminderAt(user.Email, task.Title, *task.DueDate, processAt); err != nil {
		log.Printf("notifications: reminder enqueue for %s failed: %v", user.Email, err)
	}
}

func (s *NotificationServiceImpl) deliver(db *gorm.DB, task models.Task, userID uuid.UUID, event models.NotificationType, message string) {
	prefs, err := s.userService.GetPreferences(db, userID)
	if err != nil {
		log.Printf("notifications: preference lookup failed for user %s: %v", userID, err)
		prefs = models.DefaultNotificationPreference(userID)
	}

	notification := models.Notification{
		Type:      event,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Message:   message,
		CreatedAt: time.Now(),
	}

	if prefs.AllowsPush(event) && s.registry.IsConnected(userID) {
		if err := s.registry.Push(userID, notification); err != nil {
			log.Printf("notifications: push to user %s failed: %v", userID, err)
		}
	}

	if prefs.AllowsEmail(event) {
		user, err := s.userService.GetUserByID(db, userID)
		if err != nil {
			log.Printf("notifications: user lookup failed for %s: %v", userID, err)
			return
		}
		if user.Email == "" {
			return
		}

		subject := fmt.Sprintf("Task %s: %s", event, task.Title)
		body := fmt.Sprintf("<p>%s</p>", message)
		if err := s.emailQueue.EnqueueEmail(user.Email, subject, body); err != nil {
			log.Printf("notifications: email enqueue for %s failed: %v", user.Email, err)
		}
	}
}
